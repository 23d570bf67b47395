// Package expr evaluates virtual-field formulas: a field-reference list
// folded left-to-right through an operation tape, plus the dependency
// planner that orders virtual fields within a side.
package expr

import (
	"fmt"
	"math"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// ErrorKind is the closed set of evaluation failures spec.md §4.2 names.
type ErrorKind string

const (
	ErrMissingField   ErrorKind = "MissingField"
	ErrTypeError      ErrorKind = "TypeError"
	ErrDivisionByZero ErrorKind = "DivisionByZero"
	ErrNonFinite      ErrorKind = "NonFinite"
	ErrBadDate        ErrorKind = "BadDate"
)

// EvalError carries a kind plus the field/formula context it occurred in.
type EvalError struct {
	Kind  ErrorKind
	Field string
	Msg   string
}

func (e *EvalError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, e.Field)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Field)
}

func newErr(kind ErrorKind, field, msg string) *EvalError {
	return &EvalError{Kind: kind, Field: field, Msg: msg}
}

// Op is one operation in a virtual field's tape.
type Op string

const (
	OpAdd         Op = "add"
	OpSubtract    Op = "subtract"
	OpMultiply    Op = "multiply"
	OpDivide      Op = "divide"
	OpAbs         Op = "abs"
	OpNegate      Op = "negate"
	OpConcat      Op = "concat"
	OpDateDiff    Op = "date_diff"
	OpConditional Op = "conditional" // reserved, not evaluated by the fold
)

// unary reports whether op consumes only the left operand.
func (op Op) unary() bool {
	return op == OpAbs || op == OpNegate
}

// FieldRef is one reference in a virtual field's field list: either a
// physical row column or another virtual field on the same side.
type FieldRef struct {
	Name    string
	Virtual bool
}

// DataType tags a virtual field's declared output type.
type DataType string

const (
	TypeNumber  DataType = "number"
	TypeString  DataType = "string"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
)

// VirtualField is a named computed column scoped to one side.
// Invariant: len(Operations) == max(0, len(Fields)-1).
type VirtualField struct {
	Name       string
	Side       string
	DataType   DataType
	Fields     []FieldRef
	Operations []Op
}

// Validate checks the field/operation-count invariant.
func (vf *VirtualField) Validate() error {
	want := 0
	if len(vf.Fields) > 0 {
		want = len(vf.Fields) - 1
	}
	if len(vf.Operations) != want {
		return fmt.Errorf("virtual field %q: expected %d operations for %d fields, got %d",
			vf.Name, want, len(vf.Fields), len(vf.Operations))
	}
	return nil
}

// Resolver looks up the value of another virtual field on the same row,
// already evaluated by the planner in dependency order.
type Resolver func(name string) (scalar.Value, bool)

// Evaluate folds a virtual field's fields through its operation tape.
// Field references are read in declared order; physical refs come from
// row, virtual refs are resolved via resolve (the planner guarantees no
// cycles reach here un-broken).
func Evaluate(vf *VirtualField, row scalar.Row, resolve Resolver) (scalar.Value, error) {
	if len(vf.Fields) == 0 {
		return scalar.Null(), newErr(ErrMissingField, vf.Name, "no fields declared")
	}

	read := func(ref FieldRef) (scalar.Value, error) {
		if ref.Virtual {
			if v, ok := resolve(ref.Name); ok {
				return v, nil
			}
			return scalar.Null(), newErr(ErrMissingField, vf.Name, "virtual ref "+ref.Name+" unresolved")
		}
		v, ok := row[ref.Name]
		if !ok {
			return scalar.Null(), newErr(ErrMissingField, vf.Name, "column "+ref.Name+" missing")
		}
		return v, nil
	}

	accum, err := read(vf.Fields[0])
	if err != nil {
		return scalar.Null(), err
	}

	for i, op := range vf.Operations {
		if op.unary() {
			next, uerr := applyUnary(vf, op, accum)
			if uerr != nil {
				return scalar.Null(), uerr
			}
			accum = next
			continue
		}

		ref := vf.Fields[i+1]
		rhs, rerr := read(ref)
		if rerr != nil {
			return scalar.Null(), rerr
		}

		next, aerr := applyBinary(vf, op, accum, rhs)
		if aerr != nil {
			return scalar.Null(), aerr
		}
		accum = next
	}

	return accum, nil
}

func applyUnary(vf *VirtualField, op Op, left scalar.Value) (scalar.Value, error) {
	switch op {
	case OpAbs:
		return scalar.Number(math.Abs(scalar.ToNumber(left))), nil
	case OpNegate:
		return scalar.Number(-scalar.ToNumber(left)), nil
	}
	return scalar.Null(), newErr(ErrTypeError, vf.Name, "unknown unary op "+string(op))
}

func applyBinary(vf *VirtualField, op Op, left, right scalar.Value) (scalar.Value, error) {
	switch op {
	case OpAdd:
		v := scalar.ToNumber(left) + scalar.ToNumber(right)
		return scalar.Number(v), checkFiniteErr(vf, v)
	case OpSubtract:
		v := scalar.ToNumber(left) - scalar.ToNumber(right)
		return scalar.Number(v), checkFiniteErr(vf, v)
	case OpMultiply:
		v := scalar.ToNumber(left) * scalar.ToNumber(right)
		return scalar.Number(v), checkFiniteErr(vf, v)
	case OpDivide:
		denom := scalar.ToNumber(right)
		if denom == 0 {
			return scalar.Null(), newErr(ErrDivisionByZero, vf.Name, "division by zero")
		}
		v := scalar.ToNumber(left) / denom
		return scalar.Number(v), checkFiniteErr(vf, v)
	case OpConcat:
		return scalar.String(scalar.ToString(left, scalar.FormatISODate) + " " + scalar.ToString(right, scalar.FormatISODate)), nil
	case OpDateDiff:
		leftMs, ok1 := scalar.ToDate(left)
		rightMs, ok2 := scalar.ToDate(right)
		if !ok1 || !ok2 {
			return scalar.Null(), newErr(ErrBadDate, vf.Name, "date_diff operand not a date")
		}
		days := int64(math.Floor(float64(leftMs-rightMs) / 86_400_000))
		return scalar.Number(float64(days)), nil
	}
	return scalar.Null(), newErr(ErrTypeError, vf.Name, "unknown op "+string(op))
}

func checkFiniteErr(vf *VirtualField, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newErr(ErrNonFinite, vf.Name, "non-finite arithmetic result")
	}
	return nil
}
