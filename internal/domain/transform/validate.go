package transform

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// StepSpec is the wire shape of a Step before it is trusted: struct tags
// carry the eager pre-processing validation this package runs before any
// row ever reaches ExecuteStep, the same validator.Struct pattern the rest
// of this codebase uses for request bodies.
type StepSpec struct {
	ID           string         `json:"id" validate:"required"`
	ColumnID     string         `json:"columnId" validate:"required"`
	Kind         string         `json:"kind" validate:"required,oneof=clean_string trim lowercase uppercase remove_special_chars cast_to_date cast_to_number cast_to_string convert_timezone format_date currency_conversion round_number replace_text extract_substring standardize_format conditional absolute_value negate_number scale_number fill_null flag_missing exclude_if_null"`
	Order        int            `json:"order" validate:"gte=0"`
	Params       map[string]any `json:"params"`
	OutputColumn string         `json:"outputColumn"`
}

var stepValidate = validator.New()

// ValidateStepSpec runs struct-tag validation on one step's wire shape.
func ValidateStepSpec(spec StepSpec) error {
	return stepValidate.Struct(&spec)
}

// ValidatePipeline checks cross-step rules that no single StepSpec tag can
// express: currently, cast_to_date must appear before convert_timezone
// whenever both are present, since convert_timezone's zone lookups assume
// the value already carries a canonical date representation.
func ValidatePipeline(specs []StepSpec) error {
	for _, spec := range specs {
		if err := ValidateStepSpec(spec); err != nil {
			return fmt.Errorf("invalid step %s: %w", spec.ID, err)
		}
	}

	castOrder, haveCast := -1, false
	tzOrder, haveTz := -1, false
	for _, spec := range specs {
		switch Kind(spec.Kind) {
		case KindCastToDate:
			castOrder, haveCast = spec.Order, true
		case KindConvertTimezone:
			tzOrder, haveTz = spec.Order, true
		}
	}
	if haveCast && haveTz && castOrder >= tzOrder {
		return fmt.Errorf("cast_to_date must precede convert_timezone in pipeline order")
	}

	return nil
}

// ToSteps converts validated wire specs into the Step values ExecuteStep and
// RunPipeline operate on.
func ToSteps(specs []StepSpec) []Step {
	steps := make([]Step, len(specs))
	for i, s := range specs {
		steps[i] = Step{
			ID:           s.ID,
			ColumnID:     s.ColumnID,
			Kind:         Kind(s.Kind),
			Order:        s.Order,
			Params:       s.Params,
			OutputColumn: s.OutputColumn,
		}
	}
	return steps
}
