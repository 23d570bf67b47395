// Package match implements tolerance-aware value comparison and
// field-weighted confidence scoring between a mapped source and target
// value pair (spec.md §4.6).
package match

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// ToleranceUnit is the closed set of tolerance interpretations a Config
// carries.
type ToleranceUnit string

const (
	UnitExact      ToleranceUnit = "exact"
	UnitMinutes    ToleranceUnit = "minutes"
	UnitHours      ToleranceUnit = "hours"
	UnitDays       ToleranceUnit = "days"
	UnitAmount     ToleranceUnit = "amount"
	UnitPercentage ToleranceUnit = "percentage"
)

// Config parameterizes ValuesMatch: the tolerance window and its unit.
// ToleranceUnit = exact means Tolerance is ignored entirely.
type Config struct {
	Tolerance     float64
	ToleranceUnit ToleranceUnit
}

func (c Config) toleranceMs() float64 {
	switch c.ToleranceUnit {
	case UnitMinutes:
		return c.Tolerance * 60_000
	case UnitHours:
		return c.Tolerance * 3_600_000
	case UnitDays:
		return c.Tolerance * 86_400_000
	}
	return 0
}

// ValuesMatch implements spec.md §4.6: exact equality always matches; both
// dates compare within a unit-converted tolerance window; both numbers
// compare within an absolute or percentage tolerance; otherwise values fall
// back to trimmed, lowercase string equality.
func ValuesMatch(a, b scalar.Value, cfg Config) bool {
	if scalar.Equal(a, b) {
		return true
	}

	if cfg.ToleranceUnit == UnitExact {
		return trimmedLowerEqual(a, b)
	}

	if a.IsDate() && b.IsDate() {
		diff := a.DateMs - b.DateMs
		if diff < 0 {
			diff = -diff
		}
		return float64(diff) <= cfg.toleranceMs()
	}

	if a.IsNumber() && b.IsNumber() {
		return numbersWithinTolerance(a.Number, b.Number, cfg)
	}

	return trimmedLowerEqual(a, b)
}

func numbersWithinTolerance(a, b float64, cfg Config) bool {
	da := decimal.NewFromFloat(a)
	db := decimal.NewFromFloat(b)
	diff := da.Sub(db).Abs()

	switch cfg.ToleranceUnit {
	case UnitPercentage:
		// Percentage tolerance against zero: only exact zero matches
		// (spec.md §8) — |a-0| <= |0|*p == 0 whenever b is zero.
		basis := db.Abs()
		threshold := basis.Mul(decimal.NewFromFloat(cfg.Tolerance))
		return diff.LessThanOrEqual(threshold)
	case UnitAmount:
		return diff.LessThanOrEqual(decimal.NewFromFloat(cfg.Tolerance))
	default:
		return diff.IsZero()
	}
}

func trimmedLowerEqual(a, b scalar.Value) bool {
	as := strings.ToLower(strings.TrimSpace(scalar.ToString(a, scalar.FormatISODate)))
	bs := strings.ToLower(strings.TrimSpace(scalar.ToString(b, scalar.FormatISODate)))
	return as == bs
}

// FieldWeight returns the heuristic weight for a mapping's target column
// name, used by the fuzzy/smart strategies only (spec.md §4.6).
func FieldWeight(columnName string) int {
	lower := strings.ToLower(columnName)
	switch {
	case strings.Contains(lower, "id"), strings.Contains(lower, "reference"):
		return 3
	case strings.Contains(lower, "amount"), strings.Contains(lower, "value"):
		return 3
	case strings.Contains(lower, "date"):
		return 2
	case strings.Contains(lower, "description"), strings.Contains(lower, "details"):
		return 2
	default:
		return 1
	}
}

// Mapping pairs a source value (already concatenated, if the selector was a
// list) with its target counterpart and the weight to apply.
type Mapping struct {
	Source scalar.Value
	Target scalar.Value
	Weight int
}

// Confidence computes the weighted fraction of mappings that satisfy
// ValuesMatch, in [0, 1]. An empty mapping set has no defined confidence and
// reports 0.
func Confidence(mappings []Mapping, cfg Config) float64 {
	var totalWeight, matchedWeight float64
	for _, m := range mappings {
		w := float64(m.Weight)
		totalWeight += w
		if ValuesMatch(m.Source, m.Target, cfg) {
			matchedWeight += w
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return matchedWeight / totalWeight
}
