// =============================================================================
// Z Report Exporter - Shared Types
// =============================================================================
//
// This package contains the record types shared by every stage of the export
// pipeline. Types defined here are used by:
//   - transaction / aggregate (parsing and sums)
//   - texwriter (document rendering)
//   - store (JSON log)
//   - validation, xlsximport, converter
//
// SCALAR VALUES:
//   Z reports arrive from spreadsheets and web forms, so scalar cells can be
//   strings, numbers or null. Value keeps the raw JSON token so a record read
//   from JSON is written back to the log unchanged.
//
// =============================================================================

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// SCALAR VALUE
// =============================================================================

// Value is a lenient scalar holding a raw JSON token.
// The zero Value means "absent".
type Value struct {
	raw json.RawMessage
}

// String returns a Value holding a JSON string.
func String(s string) Value {
	b, _ := json.Marshal(s)
	return Value{raw: b}
}

// Int returns a Value holding a JSON integer.
func Int(n int) Value {
	return Value{raw: json.RawMessage(strconv.Itoa(n))}
}

// Null returns a Value holding JSON null.
func Null() Value {
	return Value{raw: json.RawMessage("null")}
}

// IsZero reports whether the value is absent. Used by the omitzero tag.
func (v Value) IsZero() bool {
	return v.raw == nil
}

// IsNull reports whether the value is absent or JSON null.
func (v Value) IsNull() bool {
	return v.raw == nil || string(v.raw) == "null"
}

// IsString reports whether the value holds a JSON string.
func (v Value) IsString() bool {
	return len(v.raw) > 0 && v.raw[0] == '"'
}

// String returns the display text of the value.
// Strings are unquoted, numbers and booleans keep their literal text,
// null and absent values are empty.
func (v Value) String() string {
	if v.IsNull() {
		return ""
	}
	if v.IsString() {
		var s string
		if err := json.Unmarshal(v.raw, &s); err != nil {
			return string(v.raw)
		}
		return s
	}
	return string(v.raw)
}

// Int converts the value to an integer, defaulting to 0.
//
// CONVERSION RULES:
//   - numbers are truncated toward zero
//   - strings are parsed as base-10 integers after trimming whitespace
//   - true is 1, everything else that does not parse is 0
//
// Int never fails: blank spreadsheet cells must not abort an export.
func (v Value) Int() int {
	n, _ := v.ParseInt()
	return n
}

// ParseInt is Int with a flag telling whether the value actually parsed.
// Absent and null values report false.
func (v Value) ParseInt() (int, bool) {
	if v.IsNull() {
		return 0, false
	}

	switch text := string(v.raw); {
	case v.IsString():
		n, err := strconv.Atoi(strings.TrimSpace(v.String()))
		if err != nil {
			return 0, false
		}
		return n, true
	case text == "true":
		return 1, true
	case text == "false":
		return 0, true
	default:
		if n, err := strconv.Atoi(text); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64 {
			return 0, false
		}
		return int(math.Trunc(f)), true
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw == nil {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	v.raw = append(json.RawMessage(nil), data...)
	return nil
}

// =============================================================================
// REPORT RECORD
// =============================================================================

// ReportRecord is one Z report (cash register closing record).
// A record is immutable once received. Absent fields keep their zero value,
// which lets the renderer tell "missing" apart from "empty".
type ReportRecord struct {
	// Z is the report identifier, text or digits ("Znr" in the spreadsheet).
	Z Value `json:"z,omitzero"`

	// Date is the report date, e.g. "2024.05.17".
	Date Value `json:"date,omitzero"`

	// BuildDate is the export timestamp, e.g. "2024.05.18 09:15".
	BuildDate Value `json:"builddate,omitzero"`

	// Responsible is who was in charge of the till.
	Responsible Value `json:"responsible,omitzero"`

	// Type is the event category, e.g. "Kafé".
	Type Value `json:"type,omitzero"`

	// Comment is free text and may contain line breaks.
	Comment Value `json:"comment,omitzero"`

	// Cash holds the denomination counts at start and end of the session.
	Cash *Cash `json:"cash,omitzero"`

	// Sales and Debet are the transaction rows.
	Sales []Row `json:"sales,omitzero"`
	Debet []Row `json:"debet,omitzero"`

	// raw is the original JSON object when the record was decoded from JSON.
	raw json.RawMessage
}

// Cash holds the count of each denomination at the start and end of a session.
// Index i of Start and End belongs to denomination i of the fixed table.
type Cash struct {
	Start []Value `json:"start"`
	End   []Value `json:"end"`
}

// plainRecord has the fields of ReportRecord without its JSON methods.
type plainRecord ReportRecord

// UnmarshalJSON decodes a record and keeps the original bytes.
func (r *ReportRecord) UnmarshalJSON(data []byte) error {
	var p plainRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ReportRecord(p)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the original bytes back when the record came from JSON,
// so keys this program does not know about survive in the log.
func (r ReportRecord) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	return json.Marshal(plainRecord(r))
}

// =============================================================================
// TRANSACTION ROW
// =============================================================================

// Row is one sales or debet line, encoded in JSON as [code, description, amount].
type Row struct {
	// Code is the transaction code, e.g. "K-3014-25" or "25-K-3014-40404".
	Code Value

	// Description is free text.
	Description Value

	// Amount is integer-like; absent or unparseable amounts count as 0.
	Amount Value
}

// NewRow builds a row from Go values.
func NewRow(code, description string, amount int) Row {
	return Row{Code: String(code), Description: String(description), Amount: Int(amount)}
}

// UnmarshalJSON decodes a [code, description, amount] tuple.
// The description and amount may be omitted.
func (r *Row) UnmarshalJSON(data []byte) error {
	var parts []Value
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("transaction row must be an array: %w", err)
	}
	if len(parts) == 0 || len(parts) > 3 {
		return fmt.Errorf("transaction row must have 1 to 3 elements, got %d", len(parts))
	}

	*r = Row{Code: parts[0]}
	if len(parts) > 1 {
		r.Description = parts[1]
	}
	if len(parts) > 2 {
		r.Amount = parts[2]
	}
	return nil
}

// MarshalJSON encodes the row as a tuple, dropping trailing absent elements.
func (r Row) MarshalJSON() ([]byte, error) {
	parts := []Value{r.Code, r.Description, r.Amount}
	for len(parts) > 1 && parts[len(parts)-1].IsZero() {
		parts = parts[:len(parts)-1]
	}
	return json.Marshal(parts)
}

// =============================================================================
// DECODING HELPERS
// =============================================================================

// DecodeRecords decodes an input document holding a single record, an array of
// records, or a log object of the form {"list": [...]}.
func DecodeRecords(data []byte) ([]ReportRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	switch data[0] {
	case '[':
		var records []ReportRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to decode record list: %w", err)
		}
		return records, nil

	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		if list, ok := probe["list"]; ok {
			var records []ReportRecord
			if err := json.Unmarshal(list, &records); err != nil {
				return nil, fmt.Errorf("failed to decode record list: %w", err)
			}
			return records, nil
		}
		var record ReportRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		return []ReportRecord{record}, nil

	default:
		return nil, fmt.Errorf("input is not a JSON object or array")
	}
}
