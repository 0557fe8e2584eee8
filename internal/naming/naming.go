// Package naming derives the display identity and the archive filename of a
// Z report.
//
// FILENAME FORMAT:
//   {reportdate}-{identity}-{builddate}_{HHMM}
//
//   report date "2024.05.17"        -> "17052024"
//   identity    "Z 42"              -> "Z_42"
//   build date  "2024.05.18 09:15"  -> "18052024_0915"
//
// The filename depends only on the record fields, so re-exporting the same
// record yields the same name.
package naming

import (
	"strings"
	"unicode"

	"github.com/ginjaninja78/zreport/internal/types"
)

// Identity returns the display name of a report identifier.
// Identifiers made only of digits are prefixed with "Z ".
func Identity(z string) string {
	if isDigits(z) {
		return "Z " + z
	}
	return z
}

// Filename derives the archive filename (without extension) of a record.
func Filename(record types.ReportRecord) string {
	date := record.Date.String()
	build := []rune(record.BuildDate.String())

	reportDate := reverseDate(lastRunes(date, 10))
	buildDate := reverseDate(string(sliceRunes(build, 0, 10)))
	clock := sanitize(string(sliceRunes(build, 11, 13)) + string(sliceRunes(build, 14, 16)))

	return reportDate + "-" + sanitize(Identity(record.Z.String())) + "-" + buildDate + "_" + clock
}

// reverseDate splits a date on separator runs and joins the components in
// reverse order: "2024.05.17" and "2024-05-17" both become "17052024".
func reverseDate(date string) string {
	parts := strings.FieldsFunc(date, func(r rune) bool {
		return !isASCIIAlnum(r)
	})
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return sanitize(strings.Join(parts, ""))
}

// sanitize replaces every character outside [a-zA-Z0-9] with "_".
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if isASCIIAlnum(r) {
			return r
		}
		return '_'
	}, s)
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// sliceRunes is r[from:to] clamped to the slice bounds.
func sliceRunes(r []rune, from, to int) []rune {
	if from > len(r) {
		from = len(r)
	}
	if to > len(r) {
		to = len(r)
	}
	return r[from:to]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isASCIIAlnum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
