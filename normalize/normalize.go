// Package normalize turns raw extract values into the canonical forms both
// stores agree on: absent instead of NaN-like text, one spelling per ICD code,
// and fixed date/timestamp text.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Canonical text layouts used for storage and for documents.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	"2006-01-02 15:04",
	DateLayout,
}

// Values that spreadsheet and dataframe exports write for a missing cell.
var nullTokens = map[string]bool{
	"nan":  true,
	"nat":  true,
	"null": true,
	"none": true,
	"<na>": true,
	"na":   true,
	"n/a":  true,
	"#n/a": true,
	"-nan": true,
	"\\n":  true,
}

// Null returns nil for a missing or NaN-like value, otherwise a pointer to the
// trimmed value.
func Null(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || nullTokens[strings.ToLower(s)] {
		return nil
	}
	return &s
}

// Text is Null for free text: the null test ignores surrounding whitespace
// but a present value is returned unchanged.
func Text(s string) *string {
	if Null(s) == nil {
		return nil
	}
	return &s
}

// Value is Null without the pointer: absent values come back as "".
func Value(s string) string {
	if v := Null(s); v != nil {
		return *v
	}
	return ""
}

// ICDCode canonicalizes an ICD code: trimmed, upper case, periods removed.
// " 410.71 " and "41071" both become "41071". Absent values become "".
func ICDCode(s string) string {
	s = strings.ToUpper(Value(s))
	return strings.ReplaceAll(s, ".", "")
}

// DateOnly reduces a timestamp-like value to its calendar date prefix.
func DateOnly(s string) string {
	s = Value(s)
	if i := strings.IndexAny(s, " T"); i >= 0 {
		return s[:i]
	}
	return s
}

// Timestamp parses a timestamp-like value. ok is false for absent or
// unparseable input.
func Timestamp(s string) (t time.Time, ok bool) {
	s = Value(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date parses the date prefix of a value.
func Date(s string) (t time.Time, ok bool) {
	d := DateOnly(s)
	if d == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, d)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Int parses an integer identifier. Integral floats ("12.0"), which appear
// when an exporter widened a nullable column, are accepted.
func Int(s string) (n int64, ok bool) {
	s = Value(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	// float64(MaxInt64) rounds up to 2^63, which is already out of range.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// Flag reads a boolean-ish column: 1, 1.0, true, TRUE, t, yes.
func Flag(s string) bool {
	switch strings.ToLower(Value(s)) {
	case "1", "1.0", "true", "t", "yes", "y":
		return true
	}
	return false
}

// FormatDate renders the canonical date-only text.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTimestamp renders the canonical timestamp text.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
