// Package scalar implements canonical value coercion for reconciliation
// cells: the parse/format rules a cell value must satisfy regardless of how
// many times it passes through the pipeline.
package scalar

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the canonical form a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindDate
)

// Value is a reconciliation cell: null, boolean, number, string, or a date
// represented as epoch milliseconds (UTC).
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	DateMs int64
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Number(n float64) Value     { return Value{Kind: KindNumber, Number: n} }
func String(s string) Value      { return Value{Kind: KindString, Str: s} }
func Date(epochMs int64) Value   { return Value{Kind: KindDate, DateMs: epochMs} }
func (v Value) IsNull() bool     { return v.Kind == KindNull }
func (v Value) IsNumber() bool   { return v.Kind == KindNumber }
func (v Value) IsString() bool   { return v.Kind == KindString }
func (v Value) IsDate() bool     { return v.Kind == KindDate }

// Row is an unordered mapping from column name to Value. The reserved key
// __line carries 1-based source line provenance and never participates in
// matching.
type Row map[string]Value

const LineKey = "__line"

var currencyTrim = "$€£¥₹% \t\n\r"

// ToNumber coerces v into a finite float64. Invariant: idempotent —
// ToNumber(ToNumber(v)) == ToNumber(v).
func ToNumber(v Value) float64 {
	switch v.Kind {
	case KindNull:
		return 0
	case KindBool:
		if v.Bool {
			return 1
		}
		return 0
	case KindNumber:
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return 0
		}
		return v.Number
	case KindDate:
		return float64(v.DateMs)
	case KindString:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0
		}
		neg := false
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			neg = true
			s = s[1 : len(s)-1]
		}
		s = strings.Trim(s, currencyTrim)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSpace(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		if neg {
			f = -f
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	return 0
}

// OutputFormat controls how ToString renders a date Value.
type OutputFormat string

const (
	FormatISODate     OutputFormat = "YYYY-MM-DD"
	FormatUSDate      OutputFormat = "MM/DD/YYYY"
	FormatEUDate      OutputFormat = "DD/MM/YYYY"
	FormatISODateTime OutputFormat = "YYYY-MM-DD HH:mm:ss"
	FormatEUDateTime  OutputFormat = "DD-MM-YYYY HH:mm"
	FormatUSDateTime  OutputFormat = "MM-DD-YYYY HH:mm"
)

var goLayouts = map[OutputFormat]string{
	FormatISODate:     "2006-01-02",
	FormatUSDate:      "01/02/2006",
	FormatEUDate:      "02/01/2006",
	FormatISODateTime: "2006-01-02 15:04:05",
	FormatEUDateTime:  "02-01-2006 15:04",
	FormatUSDateTime:  "01-02-2006 15:04",
}

// ToString renders v textually; dates use outputFormat, falling back to
// ISO-8601 for an unrecognised one.
func ToString(v Value, outputFormat OutputFormat) string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindDate:
		layout, ok := goLayouts[outputFormat]
		if !ok {
			layout = time.RFC3339
		}
		return time.UnixMilli(v.DateMs).UTC().Format(layout)
	}
	return ""
}

var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// twoDigitYearLayouts parse dates whose year component is two digits. Go's
// "06" token applies its own 19xx/20xx pivot (69-99 -> 19xx, 00-68 -> 20xx);
// offsetTwoDigitYear below overrides that with spec.md §3's unconditional
// +2000 rule.
var twoDigitYearLayouts = []string{
	"02-01-06 15:04:05",
	"02-01-06 15:04",
	"02-01-06",
	"01/02/06 15:04:05",
	"01/02/06 15:04",
	"01/02/06",
}

// ToDate coerces v into canonical epoch-ms, or reports failure. Two-digit
// years below 100 are offset by +2000. Accepts epoch numbers directly.
func ToDate(v Value) (int64, bool) {
	switch v.Kind {
	case KindDate:
		return v.DateMs, true
	case KindNumber:
		return int64(v.Number), true
	case KindString:
		return parseDateString(v.Str)
	case KindNull:
		return 0, false
	}
	return 0, false
}

func parseDateString(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = offsetTwoDigitYear(t)
			return t.UnixMilli(), true
		}
	}
	// generic fallback parser
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	return 0, false
}

// offsetTwoDigitYear overrides Go's two-digit-year pivot (69-99 interpreted
// as 19xx, 00-68 as 20xx) with spec.md §3's rule: a two-digit year below 100
// is always offset by +2000, regardless of which side of the pivot Go
// already placed it on.
func offsetTwoDigitYear(t time.Time) time.Time {
	want := 2000 + t.Year()%100
	if want == t.Year() {
		return t
	}
	return time.Date(want, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Equal reports whether a and b hold the same canonical value.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Number == b.Number
	case KindString:
		return a.Str == b.Str
	case KindDate:
		return a.DateMs == b.DateMs
	}
	return false
}

func (v Value) String() string {
	return fmt.Sprintf("%v", ToString(v, FormatISODateTime))
}
