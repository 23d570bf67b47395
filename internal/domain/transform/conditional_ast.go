package transform

import (
	"fmt"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// condNode is the closed AST the parser can produce: literals, the bound
// name `value`, helper calls, comparisons, and logical connectives. There
// is deliberately no "raw expression"/eval node — the grammar is closed by
// construction (spec.md §9).
type condNode interface {
	eval(bound scalar.Value) (condResult, error)
}

// condResult is a dynamically-typed evaluation result restricted to the
// four kinds the grammar can produce: bool, number, string, and null.
type condResult struct {
	isBool bool
	b      bool
	isNum  bool
	n      float64
	isStr  bool
	s      string
	isNull bool
}

func boolResult(b bool) condResult  { return condResult{isBool: true, b: b} }
func numResult(n float64) condResult { return condResult{isNum: true, n: n} }
func strResult(s string) condResult { return condResult{isStr: true, s: s} }
func nullResult() condResult        { return condResult{isNull: true} }

func (r condResult) truthy() bool {
	switch {
	case r.isBool:
		return r.b
	case r.isNum:
		return r.n != 0
	case r.isStr:
		return r.s != ""
	}
	return false
}

type condParseError struct{ msg string }

func (e *condParseError) Error() string { return "conditional: " + e.msg }

func parseErrf(format string, args ...any) error {
	return &condParseError{msg: fmt.Sprintf(format, args...)}
}
