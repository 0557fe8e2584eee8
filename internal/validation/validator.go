// =============================================================================
// Z Report Exporter - Validation Engine
// =============================================================================
//
// This module checks a ReportRecord before anything is written. Rendering
// stops at the first problem; validation collects all of them so a report
// can be fixed in one pass.
//
// CHECKS:
//   - Required fields (z, responsible, type, date, builddate, comment,
//     sales, debet, cash with start and end)
//   - Cash layout (equal length, at most one count per denomination)
//   - Transaction codes (both grammars)
//   - Integer amounts and cash counts (warning only: they render as 0)
//   - Date lengths used by the filename (warning only)
//
// SEVERITY:
//   - "error" = the export would fail
//   - "warning" = the export succeeds but the document may look wrong
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/zreport/internal/aggregate"
	"github.com/ginjaninja78/zreport/internal/texwriter"
	"github.com/ginjaninja78/zreport/internal/transaction"
	"github.com/ginjaninja78/zreport/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the path of the offending field, e.g. "sales[2].code".
	Field string

	// Value is the offending value as displayed.
	Value string

	// Rule names the check that failed.
	Rule string

	// Message is a human-readable error message.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s (value: '%s')", strings.ToUpper(e.Severity), e.Field, e.Message, e.Value)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.Err }

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all validation errors (including warnings).
	Errors []*ValidationError

	// ErrorCount is the number of fatal errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int
}

// Err joins the fatal errors into one error, or returns nil.
// The joined error matches transaction.ErrParse, texwriter.ErrMissingField
// and aggregate.ErrCashLayout with errors.Is.
func (r *ValidationResult) Err() error {
	var errs []error
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes any warning invalidate the record.
	// Default: false
	TreatWarningsAsErrors bool
}

// Validator checks records.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate checks a record with the default options.
func Validate(record types.ReportRecord) *ValidationResult {
	return NewValidator().Validate(record)
}

// Validate checks a record and returns every problem found.
func (v *Validator) Validate(record types.ReportRecord) *ValidationResult {
	var errs []*ValidationError
	errs = append(errs, validateFields(record)...)
	errs = append(errs, validateDates(record)...)
	if record.Cash != nil {
		errs = append(errs, validateCash(*record.Cash)...)
	}
	errs = append(errs, validateRows("sales", record.Sales)...)
	errs = append(errs, validateRows("debet", record.Debet)...)

	result := &ValidationResult{IsValid: true, Errors: errs}
	for _, e := range errs {
		if e.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
		} else {
			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}
	return result
}

// =============================================================================
// CHECKS
// =============================================================================

func validateFields(record types.ReportRecord) []*ValidationError {
	var errs []*ValidationError
	missing := func(field string) {
		errs = append(errs, &ValidationError{
			Severity: SeverityError,
			Field:    field,
			Rule:     "required",
			Message:  "required field is missing",
			Err:      &texwriter.MissingFieldError{Field: field},
		})
	}

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
			missing(field.name)
		}
	}

	if record.Sales == nil {
		missing("sales")
	}
	if record.Debet == nil {
		missing("debet")
	}
	switch {
	case record.Cash == nil:
		missing("cash")
	default:
		if record.Cash.Start == nil {
			missing("cash.start")
		}
		if record.Cash.End == nil {
			missing("cash.end")
		}
	}

	if !record.Z.IsZero() && strings.TrimSpace(record.Z.String()) == "" {
		errs = append(errs, &ValidationError{
			Severity: SeverityWarning,
			Field:    "z",
			Rule:     "identity",
			Message:  "report identifier is empty",
		})
	}
	return errs
}

// validateDates warns when a date is too short for the filename layout.
func validateDates(record types.ReportRecord) []*ValidationError {
	var errs []*ValidationError
	checks := []struct {
		field string
		value types.Value
		min   int
	}{
		{"date", record.Date, 10},
		{"builddate", record.BuildDate, 16},
	}
	for _, c := range checks {
		if c.value.IsZero() {
			continue
		}
		if text := c.value.String(); utf8.RuneCountInString(text) < c.min {
			errs = append(errs, &ValidationError{
				Severity: SeverityWarning,
				Field:    c.field,
				Value:    text,
				Rule:     "length",
				Message:  fmt.Sprintf("expected at least %d characters for the document name", c.min),
			})
		}
	}
	return errs
}

func validateCash(cash types.Cash) []*ValidationError {
	var errs []*ValidationError
	if cash.Start != nil && cash.End != nil {
		if _, err := aggregate.Reconcile(cash); err != nil {
			errs = append(errs, &ValidationError{
				Severity: SeverityError,
				Field:    "cash",
				Rule:     "layout",
				Message:  err.Error(),
				Err:      err,
			})
		} else if len(cash.Start) < len(aggregate.Denominations) {
			errs = append(errs, &ValidationError{
				Severity: SeverityWarning,
				Field:    "cash",
				Rule:     "layout",
				Message:  fmt.Sprintf("%d of %d denominations counted", len(cash.Start), len(aggregate.Denominations)),
			})
		}
	}

	counts := func(name string, values []types.Value) {
		for i, value := range values {
			if value.IsNull() || strings.TrimSpace(value.String()) == "" {
				continue
			}
			if _, ok := value.ParseInt(); !ok {
				errs = append(errs, &ValidationError{
					Severity: SeverityWarning,
					Field:    fmt.Sprintf("cash.%s[%d]", name, i),
					Value:    value.String(),
					Rule:     "integer",
					Message:  "count is not an integer and counts as 0",
				})
			}
		}
	}
	counts("start", cash.Start)
	counts("end", cash.End)
	return errs
}

func validateRows(group string, rows []types.Row) []*ValidationError {
	var errs []*ValidationError
	for i, row := range rows {
		field := fmt.Sprintf("%s[%d]", group, i)

		if _, err := transaction.Parse(row.Code.String()); err != nil {
			errs = append(errs, &ValidationError{
				Severity: SeverityError,
				Field:    field + ".code",
				Value:    row.Code.String(),
				Rule:     "code",
				Message:  "not a valid transaction code",
				Err:      err,
			})
		}

		if row.Amount.IsNull() || strings.TrimSpace(row.Amount.String()) == "" {
			continue
		}
		if _, ok := row.Amount.ParseInt(); !ok {
			errs = append(errs, &ValidationError{
				Severity: SeverityWarning,
				Field:    field + ".amount",
				Value:    row.Amount.String(),
				Rule:     "integer",
				Message:  "amount is not an integer and counts as 0",
			})
		}
	}
	return errs
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
