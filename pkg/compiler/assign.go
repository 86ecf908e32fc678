package compiler

import (
	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/path"
	"github.com/remexlang/remex/pkg/runtime"
)

// compiledTarget pairs the runtime target with what the compiler
// learned about it: the static segments (nil when any segment is
// runtime-computed).
type compiledTarget struct {
	target  *runtime.Target
	static  []path.Segment
	dynamic bool
}

func (c *compiler) compileTarget(t *ast.AssignTarget) (compiledTarget, bool) {
	if t == nil {
		return compiledTarget{}, false
	}
	if t.Root == ast.RootVariable && t.Name == "" {
		span := t.Span
		c.diags.Error("invalid assignment target: variable name is empty", &span)
		return compiledTarget{}, false
	}

	segs, static, allStatic := c.compileSegments(t.Segments)
	return compiledTarget{
		target:  &runtime.Target{Root: t.Root, Name: t.Name, Segments: segs},
		static:  static,
		dynamic: !allStatic,
	}, true
}

// recordTarget updates the compile-time state a write through the
// target implies: the variable scope or the tracked event shape. A
// runtime-computed segment widens conservatively, since the written
// location cannot be proven.
func (c *compiler) recordTarget(ct compiledTarget, k kind.Kind) {
	switch ct.target.Root {
	case ast.RootVariable:
		switch {
		case ct.dynamic:
			c.scope.Assign(ct.target.Name, kind.Infallible(kind.NewAny()))
		case len(ct.static) == 0:
			c.scope.Assign(ct.target.Name, kind.Infallible(k))
		default:
			existing, ok := c.scope.Lookup(ct.target.Name)
			if !ok {
				existing = kind.Infallible(kind.NewNever())
			}
			c.scope.Assign(ct.target.Name, kind.Infallible(path.Insert(existing.Kind, ct.static, k)))
		}

	case ast.RootEvent:
		if ct.dynamic {
			c.target = kind.NewObject()
			return
		}
		c.target = path.Insert(c.target, ct.static, k)
	}
}

func sameVariable(a, b *ast.AssignTarget) bool {
	return a != nil && b != nil &&
		a.Root == ast.RootVariable && b.Root == ast.RootVariable &&
		a.Name == b.Name && len(a.Segments) == 0 && len(b.Segments) == 0
}

func (c *compiler) compileAssignment(n *ast.Assignment) runtime.Expr {
	valueNode := c.compileExpr(n.Value)
	valueTD := valueNode.TypeDef()
	span := n.Span

	target, ok := c.compileTarget(n.Target)
	if !ok {
		c.diags.Error("invalid assignment target", &span)
		return c.nullExpr()
	}

	// Single-target form: the right-hand side's fallibility flows
	// through the assignment.
	if n.ErrTarget == nil {
		c.recordTarget(target, valueTD.Kind)
		return &runtime.Assign{
			TD:     kind.TypeDef{Kind: valueTD.Kind, Fallible: valueTD.Fallible || target.dynamic},
			Span:   n.Span,
			Target: target.target,
			Value:  valueNode,
		}
	}

	// Dual form: a runtime error from the right-hand side is caught
	// and redirected into the error target, so the assignment itself
	// is infallible.
	errTarget, ok := c.compileTarget(n.ErrTarget)
	if !ok {
		c.diags.Error("invalid error assignment target", &span)
		return c.nullExpr()
	}
	if sameVariable(n.Target, n.ErrTarget) {
		c.diags.Error("value and error assignment targets must differ", &span)
	}

	defKind := kind.NewNull()
	var defaultNode runtime.Expr
	defFallible := false
	if n.Default != nil {
		defaultNode = c.compileExpr(n.Default)
		defKind = defaultNode.TypeDef().Kind
		defFallible = defaultNode.TypeDef().Fallible
	}

	valueKind := valueTD.Kind.Union(defKind)
	errKind := kind.Of(kind.Bytes | kind.Null)

	c.recordTarget(target, valueKind)
	c.recordTarget(errTarget, errKind)

	return &runtime.Assign{
		TD: kind.TypeDef{
			Kind:     valueKind,
			Fallible: defFallible || target.dynamic || errTarget.dynamic,
		},
		Span:      n.Span,
		Target:    target.target,
		ErrTarget: errTarget.target,
		Default:   defaultNode,
		Value:     valueNode,
	}
}
