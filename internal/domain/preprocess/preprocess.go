// Package preprocess composes virtual-field evaluation and per-column
// transformation pipelines into the single row-level enrichment step that
// runs ahead of matching: enriched := apply_pipelines(plan_virtual(row))
// (spec.md §5).
package preprocess

import (
	"github.com/gmhafiz/reconcile/internal/domain/expr"
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
	"github.com/gmhafiz/reconcile/internal/domain/transform"
)

// ColumnPipeline binds an ordered transformation step chain to the column it
// reads from and, if OutputColumn differs, writes to.
type ColumnPipeline struct {
	Column string
	Steps  []transform.Step
}

// Spec is everything preprocessing needs for one side of a reconciliation
// run: the virtual fields to derive, already planner-ordered or not, and the
// per-column transformation pipelines to run afterward.
type Spec struct {
	VirtualFields []*expr.VirtualField
	Pipelines     []ColumnPipeline
}

// RowOutcome is one row's enrichment result: the enriched row (nil if
// excluded), whether any pipeline raised ExcludeRow, and every virtual-field
// and pipeline-step error encountered along the way (rows still survive
// field/step errors unless a pipeline explicitly excludes them).
type RowOutcome struct {
	Row          scalar.Row
	Excluded     bool
	FieldErrors  []expr.FieldResult
	StepResults  map[string][]transform.StepResult
}

// Run derives virtual fields, then runs each column's pipeline against the
// resulting row, in column-declaration order. __line is preserved verbatim
// and participates in no pipeline.
func Run(spec Spec, row scalar.Row, ctx transform.Context) RowOutcome {
	ordered := expr.Plan(spec.VirtualFields)
	fieldResults, enriched := expr.EvaluateRow(ordered, row)

	if line, ok := row[scalar.LineKey]; ok {
		enriched[scalar.LineKey] = line
	}

	outcome := RowOutcome{
		FieldErrors: fieldResults,
		StepResults: make(map[string][]transform.StepResult, len(spec.Pipelines)),
	}

	for _, pipeline := range spec.Pipelines {
		if pipeline.Column == scalar.LineKey {
			continue
		}
		input := enriched[pipeline.Column]

		result := transform.RunPipeline(input, pipeline.Steps, ctx)
		outcome.StepResults[pipeline.Column] = result.StepResults

		if result.Excluded {
			outcome.Excluded = true
			return outcome
		}

		target := pipeline.Column
		if out := outputColumnOf(pipeline.Steps); out != "" {
			target = out
		}
		enriched[target] = result.Value
	}

	outcome.Row = enriched
	return outcome
}

// outputColumnOf returns the last step's OutputColumn override, if any — the
// pipeline writes to a single target column, set by whichever step in the
// chain names one.
func outputColumnOf(steps []transform.Step) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].OutputColumn != "" {
			return steps[i].OutputColumn
		}
	}
	return ""
}
