// =============================================================================
// Z Report Exporter - TeX Writer Module
// =============================================================================
//
// This module fills the LaTeX report template with the values of a Z report.
// The template is a plain text document containing fixed placeholder tokens:
//
//   | Token               | Value                                        |
//   |---------------------|----------------------------------------------|
//   | VAR-ZNR             | report identity ("Z 42" or the text id)      |
//   | VAR-RESPONSIBLE     | responsible person                           |
//   | VAR-TYPE            | event type                                   |
//   | VAR-DATE            | report date                                  |
//   | VAR-BUILDDATE       | export timestamp                             |
//   | VAR-COMMENT         | comment, line breaks become "\\"             |
//   | VAR-SALES-AND-DEBET | tabular rows of the sales and debet groups   |
//   | VAR-CASH            | tabular rows of the cash reconciliation      |
//
// Every token is replaced at its first occurrence only, by literal substring
// replacement. Tokens missing from the template are dropped silently.
// Free text is escaped; the two table blocks are inserted as built.
//
// =============================================================================

package texwriter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/zreport/internal/aggregate"
	"github.com/ginjaninja78/zreport/internal/naming"
	"github.com/ginjaninja78/zreport/internal/types"
)

// Placeholder tokens of the report template.
const (
	TokenIdentity       = "VAR-ZNR"
	TokenResponsible    = "VAR-RESPONSIBLE"
	TokenType           = "VAR-TYPE"
	TokenDate           = "VAR-DATE"
	TokenBuildDate      = "VAR-BUILDDATE"
	TokenComment        = "VAR-COMMENT"
	TokenSalesAndDebet  = "VAR-SALES-AND-DEBET"
	TokenCash           = "VAR-CASH"
	transactionRowJoin  = "\n\\cline{3-6}"
	cashRowJoin         = "\n\\hline"
	commentLineBreak    = "\\\\\n"
	salesSummaryCaption = "Sum salg"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrMissingField is matched by every MissingFieldError.
var ErrMissingField = errors.New("missing required field")

// MissingFieldError reports a record field the template needs but the record lacks.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// Is makes errors.Is(err, ErrMissingField) work for MissingFieldError values.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for document generation.
type GenerateOptions struct {
	// VATCodes maps a VAT code to its percentage.
	// Codes missing from the table are printed with a "(?)" marker.
	// Default: {25: 25, 15: 15}
	VATCodes map[int]int
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		VATCodes: map[int]int{25: 25, 15: 15},
	}
}

// =============================================================================
// DOCUMENT GENERATION
// =============================================================================

// LoadTemplate reads the report template from disk.
func LoadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), nil
}

// Generate fills the template with the record using the default options.
func Generate(record types.ReportRecord, template string) (string, error) {
	return GenerateWithOptions(record, template, DefaultGenerateOptions())
}

// GenerateWithOptions fills the template with the record.
//
// RETURNS:
//   - The finished document text.
//   - A *MissingFieldError when a required field is absent.
//   - A wrapped *transaction.ParseError when a row has an invalid code.
//   - A wrapped aggregate.ErrCashLayout when the cash counts do not line up.
func GenerateWithOptions(record types.ReportRecord, template string, options GenerateOptions) (string, error) {
	if err := RequireFields(record); err != nil {
		return "", err
	}

	transactions, err := TransactionBlock(record, options.VATCodes)
	if err != nil {
		return "", err
	}

	cash, err := CashBlock(*record.Cash)
	if err != nil {
		return "", err
	}

	values := []substitution{
		{TokenIdentity, Escape(naming.Identity(record.Z.String()))},
		{TokenResponsible, Escape(record.Responsible.String())},
		{TokenType, Escape(record.Type.String())},
		{TokenDate, Escape(record.Date.String())},
		{TokenBuildDate, Escape(record.BuildDate.String())},
		{TokenComment, strings.ReplaceAll(Escape(record.Comment.String()), "\n", commentLineBreak)},
		{TokenSalesAndDebet, transactions},
		{TokenCash, cash},
	}

	return substitute(template, values), nil
}

// RequireFields checks that every field the template needs is present.
// Empty values are allowed; only absent ones are reported.
func RequireFields(record types.ReportRecord) error {
	scalars := []struct {
		name  string
		value types.Value
	}{
		{"z", record.Z},
		{"responsible", record.Responsible},
		{"type", record.Type},
		{"date", record.Date},
		{"builddate", record.BuildDate},
		{"comment", record.Comment},
	}

	for _, field := range scalars {
		if field.value.IsZero() {
			return &MissingFieldError{Field: field.name}
		}
	}

	switch {
	case record.Sales == nil:
		return &MissingFieldError{Field: "sales"}
	case record.Debet == nil:
		return &MissingFieldError{Field: "debet"}
	case record.Cash == nil:
		return &MissingFieldError{Field: "cash"}
	case record.Cash.Start == nil:
		return &MissingFieldError{Field: "cash.start"}
	case record.Cash.End == nil:
		return &MissingFieldError{Field: "cash.end"}
	}

	return nil
}

// =============================================================================
// TABLE BLOCKS
// =============================================================================

// TransactionBlock builds the tabular rows of the sales group (with its
// summary line) followed by the debet group.
func TransactionBlock(record types.ReportRecord, vatCodes map[int]int) (string, error) {
	sales, err := aggregate.TransactionLines(record.Sales, vatCodes, true)
	if err != nil {
		return "", fmt.Errorf("sales: %w", err)
	}

	debet, err := aggregate.TransactionLines(record.Debet, vatCodes, false)
	if err != nil {
		return "", fmt.Errorf("debet: %w", err)
	}

	return strings.Join(groupRows(sales), transactionRowJoin) +
		strings.Join(groupRows(debet), transactionRowJoin), nil
}

// groupRows formats the rows of one transaction group.
func groupRows(group aggregate.Group) []string {
	rows := make([]string, 0, len(group.Lines)+1)

	for _, line := range group.Lines {
		project := ""
		if line.Transaction.Project != 0 {
			project = strconv.Itoa(line.Transaction.Project)
		}

		rows = append(rows, fmt.Sprintf(`\footnotesize{%s} & \footnotesize{%s} & \small{%s} & %s & %s & \footnotesize{%s} \\`,
			project,
			line.VATLabel,
			Escape(string(line.Transaction.Type)),
			Escape(line.Transaction.Account),
			Escape(line.AmountText),
			Escape(line.Description),
		))
	}

	if group.WithSum {
		rows = append(rows, fmt.Sprintf(`&&&& \textbf{%d} & \textbf{%s} \\[3mm]`, group.Sum, salesSummaryCaption))
	}

	return rows
}

// CashBlock builds the tabular rows of the cash reconciliation with its totals.
func CashBlock(cash types.Cash) (string, error) {
	table, err := aggregate.Reconcile(cash)
	if err != nil {
		return "", fmt.Errorf("cash: %w", err)
	}

	rows := make([]string, 0, len(table.Rows)+1)
	for _, row := range table.Rows {
		rows = append(rows, fmt.Sprintf(`%d & %d & %d & %d & %d \\`,
			row.Denomination, row.Start, row.End, row.Diff, row.Amount))
	}
	rows = append(rows, fmt.Sprintf(`\textbf{Sum} & %d & %d & & %d \\`,
		table.SumStart, table.SumEnd, table.SumAmount))

	return strings.Join(rows, cashRowJoin), nil
}

// =============================================================================
// SUBSTITUTION AND ESCAPING
// =============================================================================

type substitution struct {
	token string
	value string
}

// substitute replaces the first occurrence of each token in the template.
// Positions are located in the original template, so substituted text is
// never scanned for tokens again.
func substitute(template string, values []substitution) string {
	type match struct {
		start int
		substitution
	}

	matches := make([]match, 0, len(values))
	for _, v := range values {
		if i := strings.Index(template, v.token); i >= 0 {
			matches = append(matches, match{start: i, substitution: v})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].start < matches[j].start
	})

	var buffer strings.Builder
	last := 0
	for _, m := range matches {
		if m.start < last {
			continue
		}
		buffer.WriteString(template[last:m.start])
		buffer.WriteString(m.value)
		last = m.start + len(m.token)
	}
	buffer.WriteString(template[last:])

	return buffer.String()
}

// Escape trims surrounding whitespace and escapes the characters LaTeX treats
// specially: & % $ # _ { } ~ ^ and the backslash.
func Escape(s string) string {
	var buffer bytes.Buffer

	for _, r := range strings.TrimSpace(s) {
		switch r {
		case '&':
			buffer.WriteString(`\&`)
		case '%':
			buffer.WriteString(`\%`)
		case '$':
			buffer.WriteString(`\$`)
		case '#':
			buffer.WriteString(`\#`)
		case '_':
			buffer.WriteString(`\_`)
		case '{':
			buffer.WriteString(`\{`)
		case '}':
			buffer.WriteString(`\}`)
		case '~':
			buffer.WriteString(`\~`)
		case '^':
			buffer.WriteString(`\^`)
		case '\\':
			buffer.WriteString(`\\`)
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
