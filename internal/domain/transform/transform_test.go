package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

func TestRoundNumberIsIdempotent(t *testing.T) {
	step := Step{ID: "s1", Kind: KindRoundNumber, Params: map[string]any{"decimalPlaces": 2.0}}

	once, err := ExecuteStep(scalar.Number(1.23456), step, Context{})
	assert.NoError(t, err)

	twice, err := ExecuteStep(once, step, Context{})
	assert.NoError(t, err)

	assert.Equal(t, once.Number, twice.Number)
	assert.InDelta(t, 1.23, once.Number, 0.0001)
}

func TestRoundNumberHalfAwayFromZero(t *testing.T) {
	step := Step{ID: "s1", Kind: KindRoundNumber, Params: map[string]any{"decimalPlaces": 0.0}}

	pos, err := ExecuteStep(scalar.Number(2.5), step, Context{})
	assert.NoError(t, err)
	assert.Equal(t, 3.0, pos.Number)

	neg, err := ExecuteStep(scalar.Number(-2.5), step, Context{})
	assert.NoError(t, err)
	assert.Equal(t, -3.0, neg.Number)
}

func TestCleanStringIsIdempotent(t *testing.T) {
	step := Step{ID: "s1", Kind: KindCleanString}

	once, err := ExecuteStep(scalar.String("  hello   world  "), step, Context{})
	assert.NoError(t, err)

	twice, err := ExecuteStep(once, step, Context{})
	assert.NoError(t, err)

	assert.Equal(t, once.Str, twice.Str)
	assert.Equal(t, "hello world", once.Str)
}

func TestFormatDateRoundTripsThroughCastToDate(t *testing.T) {
	castStep := Step{ID: "cast", Kind: KindCastToDate}
	formatStep := Step{ID: "fmt", Kind: KindFormatDate, Params: map[string]any{"outputFormat": string(scalar.FormatISODate)}}

	cast, err := ExecuteStep(scalar.String("2024-03-15"), castStep, Context{})
	assert.NoError(t, err)

	formatted, err := ExecuteStep(cast, formatStep, Context{})
	assert.NoError(t, err)
	assert.Equal(t, "2024-03-15", formatted.Str)
}

func TestCurrencyConversionSameCurrencyIsNoOp(t *testing.T) {
	step := Step{ID: "s1", Kind: KindCurrencyConversion, Params: map[string]any{"fromCurrency": "USD", "toCurrency": "USD"}}

	out, err := ExecuteStep(scalar.Number(100), step, Context{})
	assert.NoError(t, err)
	assert.Equal(t, 100.0, out.Number)
}

func TestCurrencyConversionMissingRateFails(t *testing.T) {
	step := Step{ID: "s1", Kind: KindCurrencyConversion, Params: map[string]any{"fromCurrency": "USD", "toCurrency": "EUR"}}

	_, err := ExecuteStep(scalar.Number(100), step, Context{})
	assert.Error(t, err)
	var stepErr *StepError
	assert.ErrorAs(t, err, &stepErr)
	assert.Equal(t, ErrNoRate, stepErr.Kind)
}

type staticRates map[string]float64

func (r staticRates) Rate(from, to string) (float64, bool) {
	v, ok := r[from+"->"+to]
	return v, ok
}

func TestCurrencyConversionUsesRateProvider(t *testing.T) {
	step := Step{ID: "s1", Kind: KindCurrencyConversion, Params: map[string]any{"fromCurrency": "USD", "toCurrency": "EUR"}}
	ctx := Context{Rates: staticRates{"USD->EUR": 0.9}}

	out, err := ExecuteStep(scalar.Number(100), step, ctx)
	assert.NoError(t, err)
	assert.Equal(t, 90.0, out.Number)
}

func TestExcludeIfNullRaisesExcludeRow(t *testing.T) {
	step := Step{ID: "s1", Kind: KindExcludeIfNull}

	_, err := ExecuteStep(scalar.Null(), step, Context{})
	assert.Error(t, err)
	var stepErr *StepError
	assert.ErrorAs(t, err, &stepErr)
	assert.Equal(t, ErrExcludeRow, stepErr.Kind)
}

func TestRunPipelinePropagatesPreFailureValueOnward(t *testing.T) {
	steps := []Step{
		{ID: "s1", Kind: KindUppercase, Order: 1},
		{ID: "s2", Kind: KindScaleNumber, Order: 2, Params: map[string]any{"factor": "not-a-number"}},
		{ID: "s3", Kind: KindLowercase, Order: 3},
	}

	result := RunPipeline(scalar.String("Hello"), steps, Context{})

	assert.False(t, result.Succeeded())
	assert.Equal(t, "hello", result.Value.Str)
	assert.Len(t, result.StepResults, 3)
	assert.True(t, result.StepResults[0].Ok)
	assert.False(t, result.StepResults[1].Ok)
	assert.True(t, result.StepResults[2].Ok)
}

func TestRunPipelineExcludedRowStopsEarly(t *testing.T) {
	steps := []Step{
		{ID: "s1", Kind: KindExcludeIfNull, Order: 1},
		{ID: "s2", Kind: KindUppercase, Order: 2},
	}

	result := RunPipeline(scalar.Null(), steps, Context{})

	assert.True(t, result.Excluded)
	assert.Len(t, result.StepResults, 1)
}

func TestRunPipelineSucceedsWhenAllStepsSucceed(t *testing.T) {
	steps := []Step{
		{ID: "s1", Kind: KindTrim, Order: 1},
		{ID: "s2", Kind: KindUppercase, Order: 2},
	}

	result := RunPipeline(scalar.String("  abc  "), steps, Context{})
	assert.True(t, result.Succeeded())
	assert.Equal(t, "ABC", result.Value.Str)
}

func TestConditionalEvaluatesComparisonAndHelperCalls(t *testing.T) {
	step := Step{
		ID:   "s1",
		Kind: KindConditional,
		Params: map[string]any{
			"condition":  "value > 100 and not isEmpty(value)",
			"trueValue":  "large",
			"falseValue": "small",
			"dataType":   "string",
		},
	}

	out, err := ExecuteStep(scalar.Number(150), step, Context{})
	assert.NoError(t, err)
	assert.Equal(t, "large", out.Str)

	out2, err := ExecuteStep(scalar.Number(10), step, Context{})
	assert.NoError(t, err)
	assert.Equal(t, "small", out2.Str)
}

func TestConditionalRejectsUnknownIdentifier(t *testing.T) {
	step := Step{
		ID:   "s1",
		Kind: KindConditional,
		Params: map[string]any{
			"condition":  "eval(value)",
			"trueValue":  "x",
			"falseValue": "y",
		},
	}

	_, err := ExecuteStep(scalar.Number(1), step, Context{})
	assert.Error(t, err)
}

func TestConditionalNumericDataType(t *testing.T) {
	step := Step{
		ID:   "s1",
		Kind: KindConditional,
		Params: map[string]any{
			"condition":  "value >= 0",
			"trueValue":  "1",
			"falseValue": "-1",
			"dataType":   "number",
		},
	}

	out, err := ExecuteStep(scalar.Number(5), step, Context{})
	assert.NoError(t, err)
	assert.Equal(t, 1.0, out.Number)
}

func TestValidatePipelineRejectsTimezoneBeforeCast(t *testing.T) {
	specs := []StepSpec{
		{ID: "s1", ColumnID: "Ts", Kind: "convert_timezone", Order: 1},
		{ID: "s2", ColumnID: "Ts", Kind: "cast_to_date", Order: 2},
	}
	assert.Error(t, ValidatePipeline(specs))
}

func TestValidatePipelineAcceptsCastBeforeTimezone(t *testing.T) {
	specs := []StepSpec{
		{ID: "s1", ColumnID: "Ts", Kind: "cast_to_date", Order: 1},
		{ID: "s2", ColumnID: "Ts", Kind: "convert_timezone", Order: 2},
	}
	assert.NoError(t, ValidatePipeline(specs))
}

func TestValidateStepSpecRejectsUnknownKind(t *testing.T) {
	spec := StepSpec{ID: "s1", ColumnID: "Ts", Kind: "not_a_real_step", Order: 0}
	assert.Error(t, ValidateStepSpec(spec))
}

func TestValidateStepSpecRejectsMissingColumnID(t *testing.T) {
	spec := StepSpec{ID: "s1", Kind: "trim", Order: 0}
	assert.Error(t, ValidateStepSpec(spec))
}
