package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Int(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
		ok   bool
	}{
		{name: "integer", raw: `106`, want: 106, ok: true},
		{name: "negative", raw: `-5`, want: -5, ok: true},
		{name: "float truncates", raw: `106.9`, want: 106, ok: true},
		{name: "negative float truncates toward zero", raw: `-2.5`, want: -2, ok: true},
		{name: "digit string", raw: `"42"`, want: 42, ok: true},
		{name: "padded string", raw: `" 7 "`, want: 7, ok: true},
		{name: "blank string", raw: `""`, want: 0, ok: false},
		{name: "text", raw: `"abc"`, want: 0, ok: false},
		{name: "decimal string", raw: `"1.5"`, want: 0, ok: false},
		{name: "null", raw: `null`, want: 0, ok: false},
		{name: "true", raw: `true`, want: 1, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &v))

			got, ok := v.ParseInt()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, v.Int())
		})
	}

	assert.Equal(t, 0, Value{}.Int(), "absent value defaults to 0")
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "Kafé", String("Kafé").String())
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "", Value{}.String())
	assert.True(t, Value{}.IsZero())
	assert.False(t, Null().IsZero())
	assert.True(t, Null().IsNull())
}

func TestRow_JSON(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`["K-3014-25", "Salg", 106]`), &row))
	assert.Equal(t, "K-3014-25", row.Code.String())
	assert.Equal(t, "Salg", row.Description.String())
	assert.Equal(t, 106, row.Amount.Int())

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `["K-3014-25","Salg",106]`, string(out))

	var short Row
	require.NoError(t, json.Unmarshal([]byte(`["D-1920","Vekslepenger"]`), &short))
	assert.True(t, short.Amount.IsZero())
	assert.Equal(t, 0, short.Amount.Int())

	out, err = json.Marshal(short)
	require.NoError(t, err)
	assert.JSONEq(t, `["D-1920","Vekslepenger"]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`[]`), &row))
	assert.Error(t, json.Unmarshal([]byte(`["a","b",1,2]`), &row))
	assert.Error(t, json.Unmarshal([]byte(`"K-3014"`), &row))
}

func TestReportRecord_RoundTrip(t *testing.T) {
	input := `{"z":"17","date":"2024.05.17","builddate":"2024.05.18 09:15","responsible":"Kari","type":"Kafé","comment":"ok","cash":{"start":[1,2,3,4,5,6,7,8,9],"end":["1","","3",null,5,6,7,8,9]},"sales":[["K-3014-25","Salg",106]],"debet":[],"extra":{"kept":true}}`

	var record ReportRecord
	require.NoError(t, json.Unmarshal([]byte(input), &record))

	assert.Equal(t, "17", record.Z.String())
	assert.Equal(t, 0, record.Cash.End[1].Int())
	assert.NotNil(t, record.Debet)
	assert.Empty(t, record.Debet)

	out, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out), "unknown keys and raw scalars must survive")
}

func TestReportRecord_MarshalBuilt(t *testing.T) {
	record := ReportRecord{
		Z:     Int(3),
		Date:  String("2024.01.02"),
		Sales: []Row{NewRow("D-1920", "Kort", 50)},
	}

	out, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z":3,"date":"2024.01.02","sales":[["D-1920","Kort",50]]}`, string(out))
}

func TestDecodeRecords(t *testing.T) {
	single, err := DecodeRecords([]byte(`{"z":"1"}`))
	require.NoError(t, err)
	assert.Len(t, single, 1)

	list, err := DecodeRecords([]byte(` [{"z":"1"},{"z":"2"}]`))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	log, err := DecodeRecords([]byte(`{"list":[{"z":"1"},{"z":"2"},{"z":"3"}]}`))
	require.NoError(t, err)
	assert.Len(t, log, 3)
	assert.Equal(t, "3", log[2].Z.String())

	_, err = DecodeRecords([]byte(`  `))
	assert.Error(t, err)

	_, err = DecodeRecords([]byte(`"nope"`))
	assert.Error(t, err)

	_, err = DecodeRecords([]byte(`{"z":`))
	assert.Error(t, err)
}
