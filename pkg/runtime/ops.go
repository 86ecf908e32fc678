package runtime

import (
	"math"
	"strings"

	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/value"
)

// Unary applies negate or not to its operand.
type Unary struct {
	TD      kind.TypeDef
	Span    ast.Span
	Op      ast.UnaryOp
	Operand Expr
}

func (e *Unary) TypeDef() kind.TypeDef { return e.TD }

func (e *Unary) Resolve(ctx *Context) (value.Value, error) {
	operand, err := e.Operand.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNeg:
		switch v := operand.(type) {
		case value.Int:
			return value.NewInt(-v.Value), nil
		case value.Float:
			return value.NewFloat(-v.Value), nil
		}
		return nil, errorf(e.Span, "unary '-' requires an integer or float, got %s", value.TypeName(operand))

	case ast.OpNot:
		if b, ok := operand.(value.Bool); ok {
			return value.NewBool(!b.Value), nil
		}
		return nil, errorf(e.Span, "unary '!' requires a boolean, got %s", value.TypeName(operand))
	}
	return nil, errorf(e.Span, "unsupported unary operator %q", string(e.Op))
}

func (e *Unary) clone() Expr {
	return &Unary{TD: e.TD, Span: e.Span, Op: e.Op, Operand: e.Operand.clone()}
}

// Binary applies a binary operator. Logical operators short-circuit:
// the right operand is not evaluated when the left already determines
// the result.
type Binary struct {
	TD    kind.TypeDef
	Span  ast.Span
	Op    ast.BinaryOp
	Left  Expr
	Right Expr
}

func (e *Binary) TypeDef() kind.TypeDef { return e.TD }

func (e *Binary) Resolve(ctx *Context) (value.Value, error) {
	if e.Op == ast.OpAnd || e.Op == ast.OpOr {
		return e.resolveLogical(ctx)
	}

	left, err := e.Left.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.Right.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpAdd:
		return e.resolveAdd(left, right)
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return e.resolveArithmetic(left, right)
	case ast.OpEqEq:
		return value.NewBool(looseEqual(left, right)), nil
	case ast.OpNeq:
		return value.NewBool(!looseEqual(left, right)), nil
	case ast.OpGt, ast.OpLt, ast.OpGtEq, ast.OpLtEq:
		return e.resolveComparison(left, right)
	case ast.OpMerge:
		return e.resolveMerge(left, right)
	case ast.OpIn:
		return e.resolveContainment(left, right)
	}
	return nil, errorf(e.Span, "unsupported binary operator %q", string(e.Op))
}

func (e *Binary) resolveLogical(ctx *Context) (value.Value, error) {
	left, err := e.Left.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	lb, ok := left.(value.Bool)
	if !ok {
		return nil, errorf(e.Span, "'%s' requires boolean operands, got %s", string(e.Op), value.TypeName(left))
	}

	// Short circuit.
	if e.Op == ast.OpAnd && !lb.Value {
		return value.NewBool(false), nil
	}
	if e.Op == ast.OpOr && lb.Value {
		return value.NewBool(true), nil
	}

	right, err := e.Right.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	rb, ok := right.(value.Bool)
	if !ok {
		return nil, errorf(e.Span, "'%s' requires boolean operands, got %s", string(e.Op), value.TypeName(right))
	}
	return value.NewBool(rb.Value), nil
}

func (e *Binary) resolveAdd(left, right value.Value) (value.Value, error) {
	if ls, ok := left.(value.Bytes); ok {
		if rs, ok := right.(value.Bytes); ok {
			return value.NewBytes(ls.Value + rs.Value), nil
		}
	}
	if li, ok := left.(value.Int); ok {
		if ri, ok := right.(value.Int); ok {
			return value.NewInt(li.Value + ri.Value), nil
		}
	}
	if lf, lok := asFloat(left); lok {
		if rf, rok := asFloat(right); rok {
			return value.NewFloat(lf + rf), nil
		}
	}
	return nil, errorf(e.Span, "'+' requires two numbers or two strings, got %s and %s",
		value.TypeName(left), value.TypeName(right))
}

func (e *Binary) resolveArithmetic(left, right value.Value) (value.Value, error) {
	li, lInt := left.(value.Int)
	ri, rInt := right.(value.Int)
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return nil, errorf(e.Span, "'%s' requires numeric operands, got %s and %s",
			string(e.Op), value.TypeName(left), value.TypeName(right))
	}

	switch e.Op {
	case ast.OpSub:
		if lInt && rInt {
			return value.NewInt(li.Value - ri.Value), nil
		}
		return value.NewFloat(lf - rf), nil

	case ast.OpMul:
		if lInt && rInt {
			return value.NewInt(li.Value * ri.Value), nil
		}
		return value.NewFloat(lf * rf), nil

	case ast.OpDiv:
		if rf == 0 {
			return nil, errorf(e.Span, "division by zero")
		}
		return value.NewFloat(lf / rf), nil

	case ast.OpMod:
		if lInt && rInt {
			if ri.Value == 0 {
				return nil, errorf(e.Span, "modulo by zero")
			}
			return value.NewInt(li.Value % ri.Value), nil
		}
		if rf == 0 {
			return nil, errorf(e.Span, "modulo by zero")
		}
		return value.NewFloat(math.Mod(lf, rf)), nil
	}
	return nil, errorf(e.Span, "unsupported arithmetic operator %q", string(e.Op))
}

func (e *Binary) resolveComparison(left, right value.Value) (value.Value, error) {
	if lf, lok := asFloat(left); lok {
		if rf, rok := asFloat(right); rok {
			return value.NewBool(compareOrder(e.Op, lf < rf, lf == rf)), nil
		}
	}
	if ls, ok := left.(value.Bytes); ok {
		if rs, ok := right.(value.Bytes); ok {
			return value.NewBool(compareOrder(e.Op, ls.Value < rs.Value, ls.Value == rs.Value)), nil
		}
	}
	return nil, errorf(e.Span, "'%s' requires two numbers or two strings, got %s and %s",
		string(e.Op), value.TypeName(left), value.TypeName(right))
}

func (e *Binary) resolveMerge(left, right value.Value) (value.Value, error) {
	lo, lok := left.(value.Object)
	ro, rok := right.(value.Object)
	if !lok || !rok {
		return nil, errorf(e.Span, "'|' requires two objects, got %s and %s",
			value.TypeName(left), value.TypeName(right))
	}
	fields := make(map[string]value.Value, len(lo.Fields)+len(ro.Fields))
	for name, v := range lo.Fields {
		fields[name] = v
	}
	for name, v := range ro.Fields {
		fields[name] = v
	}
	return value.NewObject(fields), nil
}

func (e *Binary) resolveContainment(left, right value.Value) (value.Value, error) {
	switch rv := right.(type) {
	case value.Array:
		for _, item := range rv.Items {
			if looseEqual(left, item) {
				return value.NewBool(true), nil
			}
		}
		return value.NewBool(false), nil

	case value.Bytes:
		ls, ok := left.(value.Bytes)
		if !ok {
			return nil, errorf(e.Span, "'in' on a string requires a string needle, got %s", value.TypeName(left))
		}
		return value.NewBool(strings.Contains(rv.Value, ls.Value)), nil

	case value.Object:
		ls, ok := left.(value.Bytes)
		if !ok {
			return nil, errorf(e.Span, "'in' on an object requires a string key, got %s", value.TypeName(left))
		}
		_, found := rv.Fields[ls.Value]
		return value.NewBool(found), nil
	}
	return nil, errorf(e.Span, "'in' requires an array, string, or object on the right, got %s", value.TypeName(right))
}

func (e *Binary) clone() Expr {
	return &Binary{TD: e.TD, Span: e.Span, Op: e.Op, Left: e.Left.clone(), Right: e.Right.clone()}
}

// asFloat widens a numeric value to float64 for mixed arithmetic.
func asFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n.Value), true
	case value.Float:
		return n.Value, true
	}
	return 0, false
}

// looseEqual is deep equality with integer/float cross-promotion, so
// 1 == 1.0 holds.
func looseEqual(a, b value.Value) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return value.DeepEqual(a, b)
}

func compareOrder(op ast.BinaryOp, less, equal bool) bool {
	switch op {
	case ast.OpLt:
		return less
	case ast.OpLtEq:
		return less || equal
	case ast.OpGt:
		return !less && !equal
	case ast.OpGtEq:
		return !less
	}
	return false
}
