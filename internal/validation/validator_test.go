package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/zreport/internal/aggregate"
	"github.com/ginjaninja78/zreport/internal/texwriter"
	"github.com/ginjaninja78/zreport/internal/transaction"
	"github.com/ginjaninja78/zreport/internal/types"
)

func counts(values ...int) []types.Value {
	out := make([]types.Value, len(values))
	for i, v := range values {
		out[i] = types.Int(v)
	}
	return out
}

func validRecord() types.ReportRecord {
	return types.ReportRecord{
		Z:           types.String("17"),
		Date:        types.String("2024.05.17"),
		BuildDate:   types.String("2024.05.18 09:15"),
		Responsible: types.String("Kari"),
		Type:        types.String("Kafé"),
		Comment:     types.String(""),
		Cash: &types.Cash{
			Start: counts(10, 0, 0, 0, 0, 0, 0, 0, 0),
			End:   counts(15, 0, 0, 0, 0, 0, 0, 0, 0),
		},
		Sales: []types.Row{types.NewRow("K-3014-25", "Salg", 106)},
		Debet: []types.Row{},
	}
}

func TestValidate_Valid(t *testing.T) {
	result := Validate(validRecord())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.NoError(t, result.Err())
	assert.Equal(t, "No validation errors.", FormatErrors(result.Errors))
}

func TestValidate_MissingFields(t *testing.T) {
	record := validRecord()
	record.Responsible = types.Value{}
	record.Debet = nil
	record.Cash = &types.Cash{Start: counts(1)}

	result := Validate(record)

	require.False(t, result.IsValid)
	assert.Equal(t, 3, result.ErrorCount)

	var fields []string
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"responsible", "debet", "cash.end"}, fields)

	err := result.Err()
	assert.True(t, errors.Is(err, texwriter.ErrMissingField))

	var missing *texwriter.MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "responsible", missing.Field)
}

func TestValidate_CollectsAllCodeErrors(t *testing.T) {
	record := validRecord()
	record.Sales = []types.Row{
		types.NewRow("X-1234", "bad", 1),
		types.NewRow("K-3014-25", "ok", 1),
	}
	record.Debet = []types.Row{types.NewRow("D-", "bad too", 2)}

	result := Validate(record)

	require.Equal(t, 2, result.ErrorCount)
	assert.Equal(t, "sales[0].code", result.Errors[0].Field)
	assert.Equal(t, "debet[0].code", result.Errors[1].Field)
	assert.True(t, errors.Is(result.Err(), transaction.ErrParse))
}

func TestValidate_CashLayout(t *testing.T) {
	record := validRecord()
	record.Cash.End = counts(1, 2)

	result := Validate(record)
	assert.False(t, result.IsValid)
	assert.True(t, errors.Is(result.Err(), aggregate.ErrCashLayout))

	record = validRecord()
	record.Cash = &types.Cash{Start: counts(1, 2), End: counts(1, 2)}

	result = Validate(record)
	assert.True(t, result.IsValid, "a short cash count is only a warning")
	assert.Equal(t, 1, result.WarningCount)
}

func TestValidate_Warnings(t *testing.T) {
	record := validRecord()
	record.Sales = []types.Row{{Code: types.String("K-3014"), Amount: types.String("12,50")}}
	record.Cash.Start[3] = types.String("mange")
	record.Date = types.String("17.05")

	result := Validate(record)
	assert.True(t, result.IsValid)
	assert.Equal(t, 3, result.WarningCount)

	strict := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true}).Validate(record)
	assert.False(t, strict.IsValid)
	assert.NoError(t, strict.Err(), "warnings never join the fatal error")
}
