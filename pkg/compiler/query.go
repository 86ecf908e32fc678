package compiler

import (
	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/path"
	"github.com/remexlang/remex/pkg/runtime"
)

var segmentKind = kind.Of(kind.Bytes | kind.Integer)

// compileSegments compiles a path's segments. The static result is
// non-nil only when every segment is compile-time known, which is
// what shape narrowing requires.
func (c *compiler) compileSegments(segs []ast.Segment) ([]runtime.SegmentExpr, []path.Segment, bool) {
	compiled := make([]runtime.SegmentExpr, len(segs))
	static := make([]path.Segment, 0, len(segs))
	allStatic := true

	for i, seg := range segs {
		switch s := seg.(type) {
		case *ast.FieldSegment:
			p := path.Field{Name: s.Name}
			compiled[i] = runtime.SegmentExpr{Static: p}
			static = append(static, p)

		case *ast.IndexSegment:
			p := path.Index{Index: s.Index}
			compiled[i] = runtime.SegmentExpr{Static: p}
			static = append(static, p)

		case *ast.ExprSegment:
			node := c.compileExpr(s.Expr)
			if !node.TypeDef().Kind.Intersects(segmentKind) {
				span := s.Span
				c.diags.Errorf(&span, "path segment must be a string or integer, got %s", node.TypeDef().Kind)
			}
			compiled[i] = runtime.SegmentExpr{Dynamic: node}
			allStatic = false
		}
	}

	if !allStatic {
		return compiled, nil, false
	}
	return compiled, static, true
}

func (c *compiler) compileQuery(n *ast.Query) runtime.Expr {
	var rootKind kind.Kind
	rootFallible := false

	switch n.Root {
	case ast.RootEvent:
		rootKind = c.target
	case ast.RootVariable:
		td, ok := c.scope.Lookup(n.Name)
		if !ok {
			span := n.Span
			c.diags.Errorf(&span, "undefined variable %q", n.Name)
			td = kind.Infallible(kind.NewAny())
		}
		rootKind = td.Kind
		rootFallible = td.Fallible
	}

	segs, static, allStatic := c.compileSegments(n.Segments)

	var td kind.TypeDef
	if allStatic {
		// Narrow against the shape recorded for the root.
		k, fallible := path.Narrow(rootKind, static)
		td = kind.TypeDef{Kind: k, Fallible: fallible || rootFallible}
	} else {
		// A runtime-computed segment: the target shape cannot be
		// proven, so the read collapses to an unconstrained, fallible
		// result.
		td = kind.Fallible(kind.NewAny())
	}

	return &runtime.Query{TD: td, Span: n.Span, Root: n.Root, Name: n.Name, Segments: segs}
}
