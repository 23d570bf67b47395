// Package transform implements the cell-transformation pipeline engine: a
// validated, ordered chain of steps executed against a single cell value,
// with per-step failure recovery (spec.md §4.4).
package transform

import (
	"fmt"
	"time"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// Kind is the closed set of transformation step kinds.
type Kind string

const (
	KindCleanString         Kind = "clean_string"
	KindTrim                Kind = "trim"
	KindLowercase           Kind = "lowercase"
	KindUppercase           Kind = "uppercase"
	KindRemoveSpecialChars  Kind = "remove_special_chars"
	KindCastToDate          Kind = "cast_to_date"
	KindCastToNumber        Kind = "cast_to_number"
	KindCastToString        Kind = "cast_to_string"
	KindConvertTimezone     Kind = "convert_timezone"
	KindFormatDate          Kind = "format_date"
	KindCurrencyConversion  Kind = "currency_conversion"
	KindRoundNumber         Kind = "round_number"
	KindReplaceText         Kind = "replace_text"
	KindExtractSubstring    Kind = "extract_substring"
	KindStandardizeFormat   Kind = "standardize_format"
	KindConditional         Kind = "conditional"
	KindAbsoluteValue       Kind = "absolute_value"
	KindNegateNumber        Kind = "negate_number"
	KindScaleNumber         Kind = "scale_number"
	KindFillNull            Kind = "fill_null"
	KindFlagMissing         Kind = "flag_missing"
	KindExcludeIfNull       Kind = "exclude_if_null"
)

// Step is one tagged, parameterised pipeline operation.
type Step struct {
	ID           string
	ColumnID     string // the column this step reads its input from
	Kind         Kind
	Order        int
	Params       map[string]any
	OutputColumn string // if set, the pipeline writes here instead of overwriting ColumnID
}

// ErrorKind is the closed set of data-error kinds a step can raise.
type ErrorKind string

const (
	ErrParse       ErrorKind = "ParseError"
	ErrDivByZero   ErrorKind = "DivisionByZero"
	ErrNonFinite   ErrorKind = "NonFinite"
	ErrNoRate      ErrorKind = "NoExchangeRate"
	ErrUnsupported ErrorKind = "Unsupported"
	ErrExcludeRow  ErrorKind = "ExcludeRow"
)

// StepError is the error a single step execution can raise; the pipeline
// recovers locally and propagates the step's original input onward.
type StepError struct {
	Kind ErrorKind
	Step string
	Msg  string
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, e.Step) }

// RateProvider looks up a currency conversion rate; same-currency pairs
// always return 1 without a lookup. An injected, read-only collaborator
// (spec.md §6).
type RateProvider interface {
	Rate(from, to string) (float64, bool)
}

// Clock supplies the engine's notion of "now" for fill_null sentinels.
type Clock func() time.Time

// Context bundles a pipeline execution's injected collaborators.
type Context struct {
	Rates RateProvider
	Now   Clock
}

func (c Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// StepResult records one step's outcome within a pipeline run.
type StepResult struct {
	StepID  string
	Kind    Kind
	Ok      bool
	Err     error
}

// ExecuteStep runs a single step against value. On failure, the caller
// (RunPipeline) is responsible for propagating the pre-step value onward —
// ExecuteStep itself only reports the outcome for this one step.
func ExecuteStep(value scalar.Value, step Step, ctx Context) (scalar.Value, error) {
	switch step.Kind {
	case KindCleanString:
		return cleanString(value, step), nil
	case KindTrim:
		return trimStep(value), nil
	case KindLowercase:
		return lowercaseStep(value), nil
	case KindUppercase:
		return uppercaseStep(value), nil
	case KindRemoveSpecialChars:
		return removeSpecialChars(value, step), nil
	case KindCastToDate:
		return castToDate(value, step)
	case KindCastToNumber:
		return castToNumber(value, step), nil
	case KindCastToString:
		return scalar.String(scalar.ToString(value, scalar.FormatISODate)), nil
	case KindConvertTimezone:
		return convertTimezone(value, step)
	case KindFormatDate:
		return formatDate(value, step)
	case KindCurrencyConversion:
		return currencyConversion(value, step, ctx)
	case KindRoundNumber:
		return roundNumber(value, step)
	case KindReplaceText:
		return replaceText(value, step)
	case KindExtractSubstring:
		return extractSubstring(value, step)
	case KindStandardizeFormat:
		return standardizeFormat(value, step)
	case KindConditional:
		return evalConditional(value, step)
	case KindAbsoluteValue:
		return absoluteValue(value), nil
	case KindNegateNumber:
		return negateNumber(value), nil
	case KindScaleNumber:
		return scaleNumber(value, step)
	case KindFillNull:
		return fillNull(value, step, ctx), nil
	case KindFlagMissing:
		return flagMissing(value, step), nil
	case KindExcludeIfNull:
		return excludeIfNull(value, step)
	}
	return value, &StepError{Kind: ErrUnsupported, Step: step.ID, Msg: "unknown step kind " + string(step.Kind)}
}
