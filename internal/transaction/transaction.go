// =============================================================================
// Z Report Exporter - Transaction Code Parser
// =============================================================================
//
// This module decodes the compact transaction codes found in the sales and
// debet rows of a Z report. A code names the booking type, the ledger account
// and optionally a VAT code and a project.
//
// SUPPORTED FORMATS (tried in this order):
//
//   | Format  | Pattern                      | Example           |
//   |---------|------------------------------|-------------------|
//   | legacy  | TYPE-ACCOUNT[-VAT]           | K-3014-25         |
//   | current | [VAT-]TYPE-ACCOUNT[-PROJECT] | 25-K-3014-40404   |
//
//   TYPE is "K" (kredit) or "D" (debet). ACCOUNT and PROJECT are digits or
//   underscores. Legacy VAT is restricted to 25, 15 or "__".
//
// Numeric parts are converted leniently ("__" becomes 0). A code matching
// neither format is an error; callers must not skip the row.
//
// =============================================================================

package transaction

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Type is the booking direction letter.
type Type string

const (
	// Credit is encoded as "K" (kredit).
	Credit Type = "K"

	// Debit is encoded as "D" (debet).
	Debit Type = "D"
)

// Transaction is the decoded form of a transaction code.
type Transaction struct {
	Type    Type
	Account string
	VAT     int
	Project int
}

// ErrParse is matched by every ParseError.
var ErrParse = errors.New("invalid transaction code")

// ParseError reports a code that matches neither format.
type ParseError struct {
	Code string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid transaction code %q", e.Code)
}

// Is makes errors.Is(err, ErrParse) work for ParseError values.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

var (
	legacyPattern  = regexp.MustCompile(`^([KD])-([\d_]+)(?:-(25|15|__))?$`)
	currentPattern = regexp.MustCompile(`^(?:(\d+)-)?([KD])-([\d_]+)(?:-([\d_]+))?$`)
)

// Parse decodes a transaction code.
func Parse(code string) (Transaction, error) {
	if m := legacyPattern.FindStringSubmatch(code); m != nil {
		return Transaction{
			Type:    Type(m[1]),
			Account: m[2],
			VAT:     atoi(m[3]),
		}, nil
	}

	if m := currentPattern.FindStringSubmatch(code); m != nil {
		return Transaction{
			Type:    Type(m[2]),
			Account: m[3],
			VAT:     atoi(m[1]),
			Project: atoi(m[4]),
		}, nil
	}

	return Transaction{}, &ParseError{Code: code}
}

// atoi converts a matched group, treating empty or non-numeric groups as 0.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
