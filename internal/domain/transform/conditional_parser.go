package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// --- AST nodes ---

type condLiteral struct{ v condResult }

func (n *condLiteral) eval(scalar.Value) (condResult, error) { return n.v, nil }

type condValueRef struct{}

func (n *condValueRef) eval(bound scalar.Value) (condResult, error) {
	switch bound.Kind {
	case scalar.KindNull:
		return nullResult(), nil
	case scalar.KindNumber:
		return numResult(bound.Number), nil
	case scalar.KindBool:
		return boolResult(bound.Bool), nil
	default:
		return strResult(scalar.ToString(bound, scalar.FormatISODate)), nil
	}
}

type condUnary struct {
	op   condTokenType // condNot
	expr condNode
}

func (n *condUnary) eval(bound scalar.Value) (condResult, error) {
	r, err := n.expr.eval(bound)
	if err != nil {
		return condResult{}, err
	}
	return boolResult(!r.truthy()), nil
}

type condBinary struct {
	op          condTokenType
	left, right condNode
}

func (n *condBinary) eval(bound scalar.Value) (condResult, error) {
	l, err := n.left.eval(bound)
	if err != nil {
		return condResult{}, err
	}

	switch n.op {
	case condAnd:
		if !l.truthy() {
			return boolResult(false), nil
		}
		r, err := n.right.eval(bound)
		if err != nil {
			return condResult{}, err
		}
		return boolResult(r.truthy()), nil
	case condOr:
		if l.truthy() {
			return boolResult(true), nil
		}
		r, err := n.right.eval(bound)
		if err != nil {
			return condResult{}, err
		}
		return boolResult(r.truthy()), nil
	}

	r, err := n.right.eval(bound)
	if err != nil {
		return condResult{}, err
	}

	return compareResults(n.op, l, r)
}

func compareResults(op condTokenType, l, r condResult) (condResult, error) {
	switch {
	case l.isNum && r.isNum:
		return boolResult(compareFloat(op, l.n, r.n)), nil
	case l.isNull || r.isNull:
		eq := l.isNull && r.isNull
		switch op {
		case condEq:
			return boolResult(eq), nil
		case condNeq:
			return boolResult(!eq), nil
		default:
			return boolResult(false), nil
		}
	default:
		ls, rs := toComparableString(l), toComparableString(r)
		return boolResult(compareString(op, ls, rs)), nil
	}
}

func toComparableString(r condResult) string {
	switch {
	case r.isStr:
		return r.s
	case r.isBool:
		return strconv.FormatBool(r.b)
	case r.isNum:
		return strconv.FormatFloat(r.n, 'f', -1, 64)
	}
	return ""
}

func compareFloat(op condTokenType, a, b float64) bool {
	switch op {
	case condEq:
		return a == b
	case condNeq:
		return a != b
	case condLt:
		return a < b
	case condLte:
		return a <= b
	case condGt:
		return a > b
	case condGte:
		return a >= b
	}
	return false
}

func compareString(op condTokenType, a, b string) bool {
	switch op {
	case condEq:
		return a == b
	case condNeq:
		return a != b
	case condLt:
		return a < b
	case condLte:
		return a <= b
	case condGt:
		return a > b
	case condGte:
		return a >= b
	}
	return false
}

// condCall is a helper-function call: isNull, isEmpty, isNumber, isString,
// contains, startsWith, endsWith, abs, length. No other callee is legal.
type condCall struct {
	name string
	args []condNode
}

var condHelpers = map[string]bool{
	"isNull": true, "isEmpty": true, "isNumber": true, "isString": true,
	"contains": true, "startsWith": true, "endsWith": true, "abs": true, "length": true,
}

func (n *condCall) eval(bound scalar.Value) (condResult, error) {
	args := make([]condResult, len(n.args))
	for i, a := range n.args {
		r, err := a.eval(bound)
		if err != nil {
			return condResult{}, err
		}
		args[i] = r
	}

	switch n.name {
	case "isNull":
		v := arg0(args)
		return boolResult(v.isNull), nil
	case "isEmpty":
		v := arg0(args)
		return boolResult(v.isNull || (v.isStr && v.s == "")), nil
	case "isNumber":
		return boolResult(arg0(args).isNum), nil
	case "isString":
		return boolResult(arg0(args).isStr), nil
	case "abs":
		v := arg0(args)
		if !v.isNum {
			return condResult{}, parseErrf("abs() requires a number argument")
		}
		if v.n < 0 {
			return numResult(-v.n), nil
		}
		return numResult(v.n), nil
	case "length":
		v := arg0(args)
		return numResult(float64(len(toComparableString(v)))), nil
	case "contains":
		return boolResult(strings.Contains(toComparableString(arg0(args)), toComparableString(arg1(args)))), nil
	case "startsWith":
		return boolResult(strings.HasPrefix(toComparableString(arg0(args)), toComparableString(arg1(args)))), nil
	case "endsWith":
		return boolResult(strings.HasSuffix(toComparableString(arg0(args)), toComparableString(arg1(args)))), nil
	}
	return condResult{}, parseErrf("unknown helper %q", n.name)
}

func arg0(args []condResult) condResult {
	if len(args) > 0 {
		return args[0]
	}
	return nullResult()
}

func arg1(args []condResult) condResult {
	if len(args) > 1 {
		return args[1]
	}
	return nullResult()
}

// --- parser: recursive descent over the token stream, precedence
// or > and > not > comparison > primary.

type condParser struct {
	lex  *condLexer
	cur  condToken
	peek condToken
}

func newCondParser(input string) *condParser {
	p := &condParser{lex: newCondLexer(input)}
	p.cur = p.lex.nextToken()
	p.peek = p.lex.nextToken()
	return p
}

func (p *condParser) advance() {
	p.cur = p.peek
	p.peek = p.lex.nextToken()
}

func parseCondition(input string) (condNode, error) {
	p := newCondParser(input)
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != condEOF {
		return nil, parseErrf("unexpected trailing token %q", p.cur.lit)
	}
	return node, nil
}

func (p *condParser) parseOr() (condNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == condOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &condBinary{op: condOr, left: left, right: right}
	}
	return left, nil
}

func (p *condParser) parseAnd() (condNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == condAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &condBinary{op: condAnd, left: left, right: right}
	}
	return left, nil
}

func (p *condParser) parseNot() (condNode, error) {
	if p.cur.typ == condNot {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &condUnary{op: condNot, expr: inner}, nil
	}
	return p.parseComparison()
}

func (p *condParser) parseComparison() (condNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch p.cur.typ {
	case condEq, condNeq, condLt, condLte, condGt, condGte:
		op := p.cur.typ
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &condBinary{op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *condParser) parsePrimary() (condNode, error) {
	switch p.cur.typ {
	case condLParen:
		p.advance()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != condRParen {
			return nil, parseErrf("expected ')' got %q", p.cur.lit)
		}
		p.advance()
		return node, nil
	case condNumber:
		n, err := strconv.ParseFloat(p.cur.lit, 64)
		if err != nil {
			return nil, parseErrf("invalid number literal %q", p.cur.lit)
		}
		p.advance()
		return &condLiteral{v: numResult(n)}, nil
	case condString:
		s := p.cur.lit
		p.advance()
		return &condLiteral{v: strResult(s)}, nil
	case condIdent:
		name := p.cur.lit
		if strings.EqualFold(name, "value") {
			p.advance()
			return &condValueRef{}, nil
		}
		if strings.EqualFold(name, "null") {
			p.advance()
			return &condLiteral{v: nullResult()}, nil
		}
		if strings.EqualFold(name, "true") {
			p.advance()
			return &condLiteral{v: boolResult(true)}, nil
		}
		if strings.EqualFold(name, "false") {
			p.advance()
			return &condLiteral{v: boolResult(false)}, nil
		}
		if !condHelpers[name] {
			return nil, parseErrf("unknown identifier %q: only 'value' and the fixed helper set are legal", name)
		}
		p.advance()
		if p.cur.typ != condLParen {
			return nil, parseErrf("expected '(' after helper %q", name)
		}
		p.advance()
		var args []condNode
		for p.cur.typ != condRParen {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.typ == condComma {
				p.advance()
				continue
			}
			break
		}
		if p.cur.typ != condRParen {
			return nil, parseErrf("expected ')' closing call to %q", name)
		}
		p.advance()
		return &condCall{name: name, args: args}, nil
	}
	return nil, parseErrf("unexpected token %q", p.cur.lit)
}

// evalConditional evaluates step.Params["condition"] with the input value
// bound to the name `value`, then casts the winning branch's literal
// (trueValue/falseValue) to step.Params["dataType"] (default "string").
func evalConditional(v scalar.Value, step Step) (scalar.Value, error) {
	condExpr := stringParam(step, "condition", "")
	if condExpr == "" {
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "conditional requires a condition expression"}
	}

	ast, err := parseCondition(condExpr)
	if err != nil {
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: err.Error()}
	}

	result, err := ast.eval(v)
	if err != nil {
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: err.Error()}
	}

	branch := "falseValue"
	if result.truthy() {
		branch = "trueValue"
	}
	raw, ok := step.Params[branch]
	if !ok {
		return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "missing " + branch}
	}

	dataType := stringParam(step, "dataType", "string")
	return coerceConditionalBranch(raw, dataType)
}

func coerceConditionalBranch(raw any, dataType string) (scalar.Value, error) {
	literal := scalar.String(fmt.Sprintf("%v", raw))
	if s, ok := raw.(string); ok {
		literal = scalar.String(s)
	}

	switch dataType {
	case "number":
		return scalar.Number(scalar.ToNumber(literal)), nil
	case "date":
		ms, ok := scalar.ToDate(literal)
		if !ok {
			return scalar.Null(), &condParseError{msg: "branch value is not a valid date"}
		}
		return scalar.Date(ms), nil
	case "boolean":
		if b, ok := raw.(bool); ok {
			return scalar.Bool(b), nil
		}
		return scalar.Bool(strings.EqualFold(literal.Str, "true")), nil
	default: // string
		return literal, nil
	}
}
