package server

import (
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// wireRow is the JSON wire shape of one input row: column name to JSON
// primitive. __line, if present, is carried through as a number.
type wireRow map[string]any

func toScalarRow(wr wireRow) scalar.Row {
	row := make(scalar.Row, len(wr))
	for k, v := range wr {
		row[k] = toScalarValue(v)
	}
	return row
}

func toScalarValue(v any) scalar.Value {
	switch val := v.(type) {
	case nil:
		return scalar.Null()
	case bool:
		return scalar.Bool(val)
	case float64:
		return scalar.Number(val)
	case string:
		return scalar.String(val)
	default:
		return scalar.Null()
	}
}

func toScalarRows(wrs []wireRow) []scalar.Row {
	rows := make([]scalar.Row, len(wrs))
	for i, wr := range wrs {
		rows[i] = toScalarRow(wr)
	}
	return rows
}
