package transform

import (
	"sort"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// PipelineResult is the outcome of running an ordered Step chain against one
// row's source column.
type PipelineResult struct {
	Value     scalar.Value
	Excluded  bool
	StepResults []StepResult
}

// RunPipeline executes steps in Order-ascending sequence against value; on
// a step failure the pipeline carries
// the step's pre-failure input forward to the next step rather than the
// step's attempted output (spec.md §4.4). The pipeline as a whole only
// "succeeds" (all StepResults Ok) when every step does; an ExcludeRow error
// short-circuits the remaining steps and marks the row for removal upstream.
func RunPipeline(value scalar.Value, steps []Step, ctx Context) PipelineResult {
	ordered := make([]Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	current := value
	results := make([]StepResult, 0, len(ordered))

	for _, step := range ordered {
		out, err := ExecuteStep(current, step, ctx)
		if err != nil {
			results = append(results, StepResult{StepID: step.ID, Kind: step.Kind, Ok: false, Err: err})

			if se, ok := err.(*StepError); ok && se.Kind == ErrExcludeRow {
				return PipelineResult{Value: current, Excluded: true, StepResults: results}
			}

			// current is left unchanged: the step's pre-failure input
			// propagates to whatever step comes next.
			continue
		}

		results = append(results, StepResult{StepID: step.ID, Kind: step.Kind, Ok: true})
		current = out
	}

	return PipelineResult{Value: current, StepResults: results}
}

// Succeeded reports whether every step in the run completed without error.
func (r PipelineResult) Succeeded() bool {
	for _, sr := range r.StepResults {
		if !sr.Ok {
			return false
		}
	}
	return true
}
