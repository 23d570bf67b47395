package transform

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

func castToNumber(v scalar.Value, step Step) scalar.Value {
	// removeCommas/removeCurrency default true and scalar.ToNumber already
	// strips both unconditionally; the params exist for pipeline schema
	// validation/documentation parity with spec.md §4.4.
	return scalar.Number(scalar.ToNumber(v))
}

func absoluteValue(v scalar.Value) scalar.Value {
	return scalar.Number(math.Abs(scalar.ToNumber(v)))
}

func negateNumber(v scalar.Value) scalar.Value {
	return scalar.Number(-scalar.ToNumber(v))
}

func scaleNumber(v scalar.Value, step Step) (scalar.Value, error) {
	factor, ok := step.Params["factor"].(float64)
	if !ok {
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "factor must be a number"}
	}
	result := scalar.ToNumber(v) * factor
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return v, &StepError{Kind: ErrNonFinite, Step: step.ID, Msg: "non-finite scale result"}
	}
	return scalar.Number(result), nil
}

// roundNumber uses shopspring/decimal so round/ceil/floor are exact on the
// decimal representation a money column actually carries, rather than on a
// float64 that may already have accumulated binary-rounding drift.
// roundNumber(roundNumber(x, d), d) == roundNumber(x, d) (spec.md §8).
func roundNumber(v scalar.Value, step Step) (scalar.Value, error) {
	places := int32(intParam(step, "decimalPlaces", 0))
	mode := stringParam(step, "roundingMode", "round")

	d := decimal.NewFromFloat(scalar.ToNumber(v))

	var result decimal.Decimal
	switch mode {
	case "ceil":
		result = d.RoundCeil(places)
	case "floor":
		result = d.RoundFloor(places)
	case "round", "":
		// decimal.Round is half-away-from-zero on the magnitude; mirror
		// that explicitly since spec.md §4.4 calls for half-away-from-zero,
		// not banker's rounding.
		result = roundHalfAwayFromZero(d, places)
	default:
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "unknown roundingMode " + mode}
	}

	f, _ := result.Float64()
	return scalar.Number(f), nil
}

func roundHalfAwayFromZero(d decimal.Decimal, places int32) decimal.Decimal {
	if d.Sign() < 0 {
		return d.Neg().Round(places).Neg()
	}
	return d.Round(places)
}

func currencyConversion(v scalar.Value, step Step, ctx Context) (scalar.Value, error) {
	from := stringParam(step, "fromCurrency", "")
	to := stringParam(step, "toCurrency", "")
	amount := scalar.ToNumber(v)

	if from == to {
		return scalar.Number(amount), nil
	}

	if rate, ok := step.Params["exchangeRate"].(float64); ok {
		return scalar.Number(amount * rate), nil
	}

	if ctx.Rates == nil {
		return v, &StepError{Kind: ErrNoRate, Step: step.ID, Msg: "no rate provider configured"}
	}
	rate, ok := ctx.Rates.Rate(from, to)
	if !ok {
		return v, &StepError{Kind: ErrNoRate, Step: step.ID, Msg: "no rate for " + from + "->" + to}
	}
	return scalar.Number(amount * rate), nil
}
