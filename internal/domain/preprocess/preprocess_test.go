package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gmhafiz/reconcile/internal/domain/expr"
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
	"github.com/gmhafiz/reconcile/internal/domain/transform"
)

func TestRunDerivesVirtualFieldThenPipesThroughTransform(t *testing.T) {
	spec := Spec{
		VirtualFields: []*expr.VirtualField{
			{
				Name:       "Total",
				Fields:     []expr.FieldRef{{Name: "Debit"}, {Name: "Credit"}},
				Operations: []expr.Op{expr.OpAdd},
			},
		},
		Pipelines: []ColumnPipeline{
			{Column: "Total", Steps: []transform.Step{
				{ID: "round", Kind: transform.KindRoundNumber, Order: 1, Params: map[string]any{"decimalPlaces": 2.0}},
			}},
		},
	}

	row := scalar.Row{scalar.LineKey: scalar.Number(1), "Debit": scalar.Number(10.005), "Credit": scalar.Number(0)}

	outcome := Run(spec, row, transform.Context{})

	assert.False(t, outcome.Excluded)
	assert.Equal(t, 1.0, outcome.Row[scalar.LineKey].Number)
	assert.InDelta(t, 10.0, outcome.Row["Total"].Number, 0.01)
}

func TestRunPreservesLineKeyWithoutPipeline(t *testing.T) {
	spec := Spec{}
	row := scalar.Row{scalar.LineKey: scalar.Number(42), "Amount": scalar.Number(5)}

	outcome := Run(spec, row, transform.Context{})

	assert.Equal(t, 42.0, outcome.Row[scalar.LineKey].Number)
	assert.Equal(t, 5.0, outcome.Row["Amount"].Number)
}

func TestRunExcludesRowWhenPipelineRequests(t *testing.T) {
	spec := Spec{
		Pipelines: []ColumnPipeline{
			{Column: "Amount", Steps: []transform.Step{
				{ID: "exclude", Kind: transform.KindExcludeIfNull, Order: 1},
			}},
		},
	}
	row := scalar.Row{"Amount": scalar.Null()}

	outcome := Run(spec, row, transform.Context{})

	assert.True(t, outcome.Excluded)
	assert.Nil(t, outcome.Row)
}

func TestRunWritesToOutputColumnWhenSet(t *testing.T) {
	spec := Spec{
		Pipelines: []ColumnPipeline{
			{Column: "Raw", Steps: []transform.Step{
				{ID: "cast", Kind: transform.KindCastToNumber, Order: 1, OutputColumn: "Normalized"},
			}},
		},
	}
	row := scalar.Row{"Raw": scalar.String("$1,200.50")}

	outcome := Run(spec, row, transform.Context{})

	assert.False(t, outcome.Excluded)
	assert.Equal(t, 1200.50, outcome.Row["Normalized"].Number)
	assert.Equal(t, scalar.String("$1,200.50"), outcome.Row["Raw"])
}

func TestRunSurvivesVirtualFieldErrorWithoutExcludingRow(t *testing.T) {
	spec := Spec{
		VirtualFields: []*expr.VirtualField{
			{Name: "Bad", Fields: []expr.FieldRef{{Name: "Missing"}}},
		},
	}
	row := scalar.Row{}

	outcome := Run(spec, row, transform.Context{})

	assert.False(t, outcome.Excluded)
	assert.Len(t, outcome.FieldErrors, 1)
	assert.Error(t, outcome.FieldErrors[0].Err)
	assert.True(t, outcome.Row["Bad"].IsNull())
}
