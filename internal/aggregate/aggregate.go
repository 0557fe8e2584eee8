// =============================================================================
// Z Report Exporter - Monetary Aggregator
// =============================================================================
//
// This module computes the figures printed on a Z report:
//   1. Transaction lines: parsed code, VAT label and running sum per group
//   2. Cash reconciliation: per-denomination difference between the start and
//      end count, and the totals
//
// All arithmetic is integer arithmetic in the currency's whole units.
// Amounts and counts use lenient integer conversion (blank cells are 0),
// transaction codes do not: an invalid code fails the whole aggregation.
//
// =============================================================================

package aggregate

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ginjaninja78/zreport/internal/transaction"
	"github.com/ginjaninja78/zreport/internal/types"
)

// Denominations is the fixed table of note and coin values.
// Index i of a cash count belongs to Denominations[i].
var Denominations = [...]int{1, 5, 10, 20, 50, 100, 200, 500, 1000}

// ErrCashLayout reports cash counts that do not line up with Denominations.
var ErrCashLayout = errors.New("invalid cash layout")

// =============================================================================
// TRANSACTION LINES
// =============================================================================

// Line is one sales or debet row with its decoded code.
type Line struct {
	Transaction transaction.Transaction

	// VATLabel is empty when the row has no VAT code.
	VATLabel string

	Amount      int
	AmountText  string
	Description string
}

// Group is an aggregated list of transaction rows.
type Group struct {
	Lines []Line
	Sum   int

	// WithSum marks groups rendered with a summary line (sales).
	WithSum bool
}

// TransactionLines parses every row of a group and sums the amounts.
//
// PARAMETERS:
//   - rows: The sales or debet rows.
//   - vatCodes: VAT code to percentage table from configuration.
//   - withSum: Whether the group gets a summary line.
//
// RETURNS:
//   - The aggregated group.
//   - A *transaction.ParseError (wrapped) for the first invalid code.
func TransactionLines(rows []types.Row, vatCodes map[int]int, withSum bool) (Group, error) {
	group := Group{
		Lines:   make([]Line, 0, len(rows)),
		WithSum: withSum,
	}

	for i, row := range rows {
		t, err := transaction.Parse(row.Code.String())
		if err != nil {
			return Group{}, fmt.Errorf("row %d: %w", i+1, err)
		}

		amount := row.Amount.Int()
		group.Lines = append(group.Lines, Line{
			Transaction: t,
			VATLabel:    VATLabel(t.VAT, vatCodes),
			Amount:      amount,
			AmountText:  row.Amount.String(),
			Description: row.Description.String(),
		})
		group.Sum += amount
	}

	return group, nil
}

// VATLabel returns the display label of a VAT code.
// Known codes show their percentage, unknown codes are flagged with "(?)".
// The label is typeset text: the percent sign is escaped.
func VATLabel(code int, vatCodes map[int]int) string {
	if code == 0 {
		return ""
	}
	if pct, ok := vatCodes[code]; ok {
		return fmt.Sprintf(`%d (%d\%%)`, code, pct)
	}
	return strconv.Itoa(code) + `\% (?)`
}

// =============================================================================
// CASH RECONCILIATION
// =============================================================================

// CashRow is the reconciliation of one denomination.
type CashRow struct {
	Denomination int
	Start        int
	End          int
	Diff         int
	Amount       int
}

// CashTable is the full reconciliation with totals.
type CashTable struct {
	Rows      []CashRow
	SumStart  int
	SumEnd    int
	SumAmount int
}

// Reconcile computes the cash reconciliation table.
//
// For each denomination: diff = end - start, amount = diff * denomination.
// The totals are the value counted at start, at end, and their difference.
//
// RETURNS:
//   - ErrCashLayout (wrapped) when start and end differ in length or hold more
//     counts than there are denominations.
func Reconcile(cash types.Cash) (CashTable, error) {
	if len(cash.Start) != len(cash.End) {
		return CashTable{}, fmt.Errorf("%w: start has %d counts, end has %d", ErrCashLayout, len(cash.Start), len(cash.End))
	}
	if len(cash.Start) > len(Denominations) {
		return CashTable{}, fmt.Errorf("%w: %d counts for %d denominations", ErrCashLayout, len(cash.Start), len(Denominations))
	}

	table := CashTable{Rows: make([]CashRow, 0, len(cash.Start))}

	for i := range cash.Start {
		denomination := Denominations[i]
		start := cash.Start[i].Int()
		end := cash.End[i].Int()
		diff := end - start

		row := CashRow{
			Denomination: denomination,
			Start:        start,
			End:          end,
			Diff:         diff,
			Amount:       diff * denomination,
		}
		table.Rows = append(table.Rows, row)

		table.SumAmount += row.Amount
		table.SumStart += start * denomination
		table.SumEnd += end * denomination
	}

	return table, nil
}
