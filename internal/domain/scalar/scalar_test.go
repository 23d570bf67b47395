package scalar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToNumberIdempotent(t *testing.T) {
	cases := []Value{
		String("$ 1,234.50"),
		String("(30,989)"),
		String("94.01%"),
		String("  123  "),
		Null(),
		Bool(true),
		Number(42.5),
	}

	for _, c := range cases {
		first := ToNumber(c)
		second := ToNumber(Number(first))
		assert.Equal(t, first, second)
	}
}

func TestToNumberParsesCurrencyAndParens(t *testing.T) {
	assert.Equal(t, 1234.5, ToNumber(String("$ 1,234.50")))
	assert.Equal(t, -30989.0, ToNumber(String("(30,989)")))
	assert.Equal(t, 94.01, ToNumber(String("94.01%")))
	assert.Equal(t, 0.0, ToNumber(String("not-a-number")))
	assert.Equal(t, 0.0, ToNumber(Null()))
	assert.Equal(t, 1.0, ToNumber(Bool(true)))
}

func TestToStringNull(t *testing.T) {
	assert.Equal(t, "", ToString(Null(), FormatISODate))
}

func TestToDateFormats(t *testing.T) {
	tests := []string{
		"2024-01-15",
		"15-01-2024 09:07",
		"01/15/2024",
	}
	for _, s := range tests {
		ms, ok := ToDate(String(s))
		assert.True(t, ok, s)
		assert.Greater(t, ms, int64(0))
	}
}

func TestToDateIdempotentWhenDefined(t *testing.T) {
	ms, ok := ToDate(String("2024-01-15"))
	assert.True(t, ok)
	ms2, ok2 := ToDate(Date(ms))
	assert.True(t, ok2)
	assert.Equal(t, ms, ms2)
}

func TestToDateInvalid(t *testing.T) {
	_, ok := ToDate(String("not a date"))
	assert.False(t, ok)
}

func TestToDateTwoDigitYearAlwaysOffsetsToTwentyHundreds(t *testing.T) {
	// "99" falls on Go's 19xx side of its own two-digit-year pivot
	// (would parse to 1999); spec.md §3 requires it land on 2099 instead.
	ms, ok := ToDate(String("15-01-99"))
	assert.True(t, ok)
	assert.Equal(t, 2099, time.UnixMilli(ms).UTC().Year())

	ms2, ok2 := ToDate(String("01/15/24"))
	assert.True(t, ok2)
	assert.Equal(t, 2024, time.UnixMilli(ms2).UTC().Year())
}
