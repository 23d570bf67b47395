package expr

import (
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// Plan topologically sorts a side's virtual fields on their virtual
// dependencies: fields whose virtual deps are already placed are extracted
// first. Fields caught in an unresolvable cycle are placed last, in a
// stable (declaration) order, so the row still gets a defined
// MissingField error rather than never terminating.
func Plan(fields []*VirtualField) []*VirtualField {
	byName := make(map[string]*VirtualField, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	placed := make(map[string]bool, len(fields))
	ordered := make([]*VirtualField, 0, len(fields))
	remaining := append([]*VirtualField(nil), fields...)

	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0:0]

		for _, f := range remaining {
			if ready(f, byName, placed) {
				ordered = append(ordered, f)
				placed[f.Name] = true
				progressed = true
			} else {
				next = append(next, f)
			}
		}
		remaining = next

		if !progressed {
			// Cycle: keep declaration order for the remainder and stop.
			ordered = append(ordered, remaining...)
			break
		}
	}

	return ordered
}

func ready(f *VirtualField, byName map[string]*VirtualField, placed map[string]bool) bool {
	for _, ref := range f.Fields {
		if !ref.Virtual {
			continue
		}
		if _, exists := byName[ref.Name]; !exists {
			continue // dangling ref resolved as MissingField at eval time
		}
		if !placed[ref.Name] {
			return false
		}
	}
	return true
}

// FieldResult is one virtual field's outcome for a single row.
type FieldResult struct {
	Name  string
	Value scalar.Value
	Err   error
}

// EvaluateRow evaluates fields (already planner-ordered) against row,
// injecting each successfully computed value as a named column available to
// subsequent fields. A failing field yields a null column and its error is
// reported alongside, so the row still survives; a later field that
// references it as a virtual dependency fails with MissingField.
func EvaluateRow(fields []*VirtualField, row scalar.Row) ([]FieldResult, scalar.Row) {
	resolved := make(map[string]scalar.Value, len(fields))
	results := make([]FieldResult, 0, len(fields))

	resolve := func(name string) (scalar.Value, bool) {
		v, ok := resolved[name]
		return v, ok
	}

	enriched := make(scalar.Row, len(row)+len(fields))
	for k, v := range row {
		enriched[k] = v
	}

	for _, f := range fields {
		v, err := Evaluate(f, row, resolve)
		if err != nil {
			enriched[f.Name] = scalar.Null()
			results = append(results, FieldResult{Name: f.Name, Value: scalar.Null(), Err: err})
			continue
		}
		resolved[f.Name] = v
		enriched[f.Name] = v
		results = append(results, FieldResult{Name: f.Name, Value: v})
	}

	return results, enriched
}
