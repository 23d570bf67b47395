package transform

import (
	"time"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

func castToDate(v scalar.Value, step Step) (scalar.Value, error) {
	ms, ok := scalar.ToDate(v)
	if !ok {
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "unparseable date"}
	}

	if boolParam(step, "strictParsing", false) {
		layout := stringParam(step, "inputFormat", "")
		if layout != "" {
			if _, err := time.Parse(goLayout(layout), scalar.ToString(v, scalar.FormatISODate)); err != nil {
				return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "strict parse mismatch"}
			}
		}
	}

	return scalar.Date(ms), nil
}

func goLayout(format string) string {
	switch format {
	case "YYYY-MM-DD":
		return "2006-01-02"
	case "MM/DD/YYYY":
		return "01/02/2006"
	case "DD/MM/YYYY":
		return "02/01/2006"
	case "YYYY-MM-DD HH:mm:ss":
		return "2006-01-02 15:04:05"
	case "DD-MM-YYYY HH:mm":
		return "02-01-2006 15:04"
	case "MM-DD-YYYY HH:mm":
		return "01-02-2006 15:04"
	}
	return time.RFC3339
}

func formatDate(v scalar.Value, step Step) (scalar.Value, error) {
	ms, ok := scalar.ToDate(v)
	if !ok {
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "value is not a date"}
	}
	outputFormat := scalar.OutputFormat(stringParam(step, "outputFormat", string(scalar.FormatISODate)))
	return scalar.String(scalar.ToString(scalar.Date(ms), outputFormat)), nil
}

// convertTimezone preserves the absolute instant (epoch-ms) by construction
// — a Scalar date is already instant-based, so there is no wall-clock
// representation to shift. The only behavior this step can meaningfully
// offer without a wall-clock-aware display layer is to validate that the
// requested zones are ones the stdlib tzdata can resolve; unsupported zones
// report Unsupported rather than silently reinterpreting the instant. This
// resolves the "wall-clock shift vs. preserve instant" open question from
// spec.md §9 in favor of preserving instant (see DESIGN.md).
func convertTimezone(v scalar.Value, step Step) (scalar.Value, error) {
	ms, ok := scalar.ToDate(v)
	if !ok {
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "value is not a date"}
	}

	from := stringParam(step, "fromTimezone", "UTC")
	to := stringParam(step, "toTimezone", "UTC")

	for _, zone := range []string{from, to} {
		if zone == "UTC" || zone == "" {
			continue
		}
		if _, err := time.LoadLocation(zone); err != nil {
			return v, &StepError{Kind: ErrUnsupported, Step: step.ID, Msg: "unsupported timezone " + zone}
		}
	}

	return scalar.Date(ms), nil
}

var sentinels = map[string]func(time.Time) scalar.Value{
	"current_date": func(t time.Time) scalar.Value {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return scalar.Date(d.UnixMilli())
	},
	"current_datetime": func(t time.Time) scalar.Value { return scalar.Date(t.UnixMilli()) },
	"current_timestamp": func(t time.Time) scalar.Value { return scalar.Date(t.UnixMilli()) },
}

func isMissing(v scalar.Value, treatEmptyAsNull, treatZeroAsNull bool) bool {
	if v.IsNull() {
		return true
	}
	if treatEmptyAsNull && v.IsString() && v.Str == "" {
		return true
	}
	if treatZeroAsNull && v.IsNumber() && v.Number == 0 {
		return true
	}
	return false
}

func fillNull(v scalar.Value, step Step, ctx Context) scalar.Value {
	treatEmpty := boolParam(step, "treatEmptyAsNull", true)
	treatZero := boolParam(step, "treatZeroAsNull", false)

	if !isMissing(v, treatEmpty, treatZero) {
		return v
	}

	fillRaw := stringParam(step, "fillValue", "")
	if fn, ok := sentinels[fillRaw]; ok {
		return fn(ctx.now())
	}
	return scalar.String(fillRaw)
}

func flagMissing(v scalar.Value, step Step) scalar.Value {
	if !isMissing(v, true, false) {
		return v
	}
	flagValue := stringParam(step, "flagValue", "MISSING")
	position := stringParam(step, "flagPosition", "prefix")
	current := scalar.ToString(v, scalar.FormatISODate)

	switch position {
	case "suffix":
		return scalar.String(current + flagValue)
	case "replace":
		return scalar.String(flagValue)
	default: // prefix
		return scalar.String(flagValue + current)
	}
}

func excludeIfNull(v scalar.Value, step Step) (scalar.Value, error) {
	treatEmpty := boolParam(step, "treatEmptyAsNull", true)
	threshold := stringParam(step, "threshold", "")

	missing := isMissing(v, treatEmpty, false)
	if threshold != "" && v.IsNumber() {
		// threshold interpreted as a lower bound below which the row is
		// also excluded, alongside null/empty.
		if th := scalar.ToNumber(scalar.String(threshold)); v.Number < th {
			missing = true
		}
	}

	if missing {
		return v, &StepError{Kind: ErrExcludeRow, Step: step.ID, Msg: "value excluded"}
	}
	return v, nil
}
