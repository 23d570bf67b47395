package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

func TestEvaluateAddIsFoldLeft(t *testing.T) {
	vf := &VirtualField{
		Name:       "Total",
		Fields:     []FieldRef{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		Operations: []Op{OpAdd, OpAdd},
	}
	row := scalar.Row{"A": scalar.Number(1), "B": scalar.Number(2), "C": scalar.Number(3)}

	v, err := Evaluate(vf, row, nil)
	assert.NoError(t, err)
	assert.Equal(t, 6.0, v.Number)
}

func TestEvaluateSingleFieldIsIdentity(t *testing.T) {
	vf := &VirtualField{Name: "X", Fields: []FieldRef{{Name: "A"}}}
	row := scalar.Row{"A": scalar.Number(5)}

	v, err := Evaluate(vf, row, nil)
	assert.NoError(t, err)
	assert.Equal(t, 5.0, v.Number)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	vf := &VirtualField{
		Name:       "Ratio",
		Fields:     []FieldRef{{Name: "A"}, {Name: "B"}},
		Operations: []Op{OpDivide},
	}
	row := scalar.Row{"A": scalar.Number(5), "B": scalar.Number(0)}

	_, err := Evaluate(vf, row, nil)
	var evalErr *EvalError
	assert.ErrorAs(t, err, &evalErr)
	assert.Equal(t, ErrDivisionByZero, evalErr.Kind)
}

func TestEvaluateMissingField(t *testing.T) {
	vf := &VirtualField{Name: "X", Fields: []FieldRef{{Name: "Missing"}}}
	_, err := Evaluate(vf, scalar.Row{}, nil)
	var evalErr *EvalError
	assert.ErrorAs(t, err, &evalErr)
	assert.Equal(t, ErrMissingField, evalErr.Kind)
}

func TestVirtualFieldValidateInvariant(t *testing.T) {
	ok := &VirtualField{Fields: []FieldRef{{Name: "A"}, {Name: "B"}}, Operations: []Op{OpAdd}}
	assert.NoError(t, ok.Validate())

	bad := &VirtualField{Fields: []FieldRef{{Name: "A"}, {Name: "B"}}, Operations: []Op{}}
	assert.Error(t, bad.Validate())
}

func TestPlanOrdersByDependencyIndependentOfDeclarationOrder(t *testing.T) {
	// B = A * 2, A = X + Y — declared in B, A order.
	a := &VirtualField{Name: "A", Fields: []FieldRef{{Name: "X"}, {Name: "Y"}}, Operations: []Op{OpAdd}}
	b := &VirtualField{Name: "B", Fields: []FieldRef{{Name: "A", Virtual: true}, {Name: "two"}}, Operations: []Op{OpMultiply}}

	row := scalar.Row{"X": scalar.Number(3), "Y": scalar.Number(4), "two": scalar.Number(2)}

	ordered1 := Plan([]*VirtualField{b, a})
	results1, _ := EvaluateRow(ordered1, row)

	ordered2 := Plan([]*VirtualField{a, b})
	results2, _ := EvaluateRow(ordered2, row)

	byName := func(results []FieldResult) map[string]scalar.Value {
		m := map[string]scalar.Value{}
		for _, r := range results {
			m[r.Name] = r.Value
		}
		return m
	}

	m1 := byName(results1)
	m2 := byName(results2)
	assert.Equal(t, 7.0, m1["A"].Number)
	assert.Equal(t, 14.0, m1["B"].Number)
	assert.Equal(t, m1["A"].Number, m2["A"].Number)
	assert.Equal(t, m1["B"].Number, m2["B"].Number)
}

func TestPlanCycleProducesMissingFieldNotPanic(t *testing.T) {
	a := &VirtualField{Name: "A", Fields: []FieldRef{{Name: "B", Virtual: true}}}
	b := &VirtualField{Name: "B", Fields: []FieldRef{{Name: "A", Virtual: true}}}

	ordered := Plan([]*VirtualField{a, b})
	assert.Len(t, ordered, 2)

	results, _ := EvaluateRow(ordered, scalar.Row{})
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}
