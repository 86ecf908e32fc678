package compiler

import (
	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/kind"
)

// opVerdict is one row of the binary operator type table: the result
// kind given the operand kinds, whether the combination is guaranteed
// valid at runtime, and whether any valid combination exists at all.
type opVerdict struct {
	result kind.Kind
	// guaranteed is false when some category combination of the
	// operands would be a runtime error.
	guaranteed bool
	// possible is false when no category combination is valid, which
	// is a fatal diagnostic.
	possible bool
	// alwaysFallible marks operators that can fail even on well-typed
	// operands (division and modulo by zero).
	alwaysFallible bool
}

var numericKind = kind.Numeric()

// binaryVerdict computes the fixed (operator, left kind, right kind)
// table entry for all non-logical operators.
func binaryVerdict(op ast.BinaryOp, l, r kind.Kind) opVerdict {
	switch op {
	case ast.OpAdd:
		return addVerdict(l, r)
	case ast.OpSub, ast.OpMul:
		return arithVerdict(l, r, false)
	case ast.OpMod:
		return arithVerdict(l, r, true)
	case ast.OpDiv:
		return divVerdict(l, r)
	case ast.OpEqEq, ast.OpNeq:
		return opVerdict{result: kind.NewBoolean(), guaranteed: true, possible: true}
	case ast.OpGt, ast.OpLt, ast.OpGtEq, ast.OpLtEq:
		return compareVerdict(l, r)
	case ast.OpMerge:
		return mergeVerdict(l, r)
	case ast.OpIn:
		return containVerdict(l, r)
	}
	return opVerdict{}
}

func numericPair(l, r kind.Kind) (kind.Kind, bool) {
	res := kind.NewNever()
	if l.Contains(kind.Integer) && r.Contains(kind.Integer) {
		res = res.Union(kind.NewInteger())
	}
	bothNumeric := l.Intersects(numericKind) && r.Intersects(numericKind)
	if bothNumeric && (l.Contains(kind.Float) || r.Contains(kind.Float)) {
		res = res.Union(kind.NewFloat())
	}
	return res, bothNumeric
}

func addVerdict(l, r kind.Kind) opVerdict {
	res, numericPossible := numericPair(l, r)
	if l.Contains(kind.Bytes) && r.Contains(kind.Bytes) {
		res = res.Union(kind.NewBytes())
	}
	guaranteed := (l.ContainedIn(numericKind) && r.ContainedIn(numericKind)) ||
		(l.ContainedIn(kind.NewBytes()) && r.ContainedIn(kind.NewBytes()))
	_ = numericPossible
	return opVerdict{result: res, guaranteed: guaranteed, possible: !res.IsNever()}
}

func arithVerdict(l, r kind.Kind, fallible bool) opVerdict {
	res, possible := numericPair(l, r)
	guaranteed := l.ContainedIn(numericKind) && r.ContainedIn(numericKind)
	return opVerdict{result: res, guaranteed: guaranteed, possible: possible && !res.IsNever(), alwaysFallible: fallible}
}

func divVerdict(l, r kind.Kind) opVerdict {
	possible := l.Intersects(numericKind) && r.Intersects(numericKind)
	guaranteed := l.ContainedIn(numericKind) && r.ContainedIn(numericKind)
	return opVerdict{result: kind.NewFloat(), guaranteed: guaranteed, possible: possible, alwaysFallible: true}
}

func compareVerdict(l, r kind.Kind) opVerdict {
	possible := (l.Intersects(numericKind) && r.Intersects(numericKind)) ||
		(l.Contains(kind.Bytes) && r.Contains(kind.Bytes))
	guaranteed := (l.ContainedIn(numericKind) && r.ContainedIn(numericKind)) ||
		(l.ContainedIn(kind.NewBytes()) && r.ContainedIn(kind.NewBytes()))
	return opVerdict{result: kind.NewBoolean(), guaranteed: guaranteed, possible: possible}
}

func mergeVerdict(l, r kind.Kind) opVerdict {
	possible := l.Contains(kind.Object) && r.Contains(kind.Object)
	guaranteed := l.ContainedIn(kind.NewObject()) && r.ContainedIn(kind.NewObject())

	res := kind.NewObject()
	lf, rf := l.Fields(), r.Fields()
	if lf != nil && rf != nil {
		merged := make(map[string]kind.Kind, len(lf)+len(rf))
		for name, f := range lf {
			merged[name] = f
		}
		for name, f := range rf {
			merged[name] = f
		}
		if l.FieldsClosed() && r.FieldsClosed() {
			res = kind.NewObjectOf(merged)
		} else {
			// Either operand may carry fields beyond the recorded
			// ones, so the merge stays open.
			for name, f := range merged {
				res = res.WithField(name, f)
			}
		}
	}
	return opVerdict{result: res, guaranteed: guaranteed, possible: possible}
}

func containVerdict(l, r kind.Kind) opVerdict {
	haystack := kind.Of(kind.Array | kind.Bytes | kind.Object)
	possible := r.Intersects(haystack)
	guaranteed := r.ContainedIn(kind.NewArray()) ||
		(r.ContainedIn(kind.Of(kind.Bytes|kind.Object)) && l.ContainedIn(kind.NewBytes()))
	return opVerdict{result: kind.NewBoolean(), guaranteed: guaranteed, possible: possible}
}
