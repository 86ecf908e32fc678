package runtime

import (
	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/path"
	"github.com/remexlang/remex/pkg/value"
)

// Target is a compiled assignment target: a variable or a path rooted
// at the event or a variable.
type Target struct {
	Root     ast.Root
	Name     string
	Segments []SegmentExpr
}

func (t *Target) clone() *Target {
	return &Target{Root: t.Root, Name: t.Name, Segments: cloneSegments(t.Segments)}
}

// commit writes v through the target's path, creating intermediate
// containers as needed.
func (t *Target) commit(ctx *Context, v value.Value, span ast.Span) error {
	segs, err := resolveSegments(ctx, t.Segments, span)
	if err != nil {
		return err
	}

	switch t.Root {
	case ast.RootEvent:
		ctx.Target = path.Write(ctx.Target, segs, v)
	case ast.RootVariable:
		if len(segs) == 0 {
			ctx.SetVariable(t.Name, v)
			return nil
		}
		root, ok := ctx.Variable(t.Name)
		if !ok {
			root = value.NewNull()
		}
		ctx.SetVariable(t.Name, path.Write(root, segs, v))
	}
	return nil
}

// Assign commits its right-hand side into Target. When ErrTarget is
// non-nil (the fallible form) a runtime Error from the right-hand
// side is caught rather than propagated: the error message is bound
// into ErrTarget and the compiled default into Target. Abort is never
// caught.
type Assign struct {
	TD        kind.TypeDef
	Span      ast.Span
	Target    *Target
	ErrTarget *Target
	Default   Expr // nil means null
	Value     Expr
}

func (e *Assign) TypeDef() kind.TypeDef { return e.TD }

func (e *Assign) Resolve(ctx *Context) (value.Value, error) {
	v, err := e.Value.Resolve(ctx)

	if e.ErrTarget == nil {
		if err != nil {
			return nil, err
		}
		if err := e.Target.commit(ctx, v, e.Span); err != nil {
			return nil, err
		}
		return v, nil
	}

	var errVal value.Value = value.NewNull()
	if err != nil {
		rtErr, ok := err.(*Error)
		if !ok {
			// Abort (or anything else) unwinds.
			return nil, err
		}
		errVal = value.NewBytes(rtErr.Message)
		if e.Default != nil {
			v, err = e.Default.Resolve(ctx)
			if err != nil {
				return nil, err
			}
		} else {
			v = value.NewNull()
		}
	}

	if err := e.Target.commit(ctx, v, e.Span); err != nil {
		return nil, err
	}
	if err := e.ErrTarget.commit(ctx, errVal, e.Span); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *Assign) clone() Expr {
	out := &Assign{TD: e.TD, Span: e.Span, Target: e.Target.clone(), Value: e.Value.clone()}
	if e.ErrTarget != nil {
		out.ErrTarget = e.ErrTarget.clone()
	}
	if e.Default != nil {
		out.Default = e.Default.clone()
	}
	return out
}
