// Package runtime defines the compiled, type-checked expression tree
// and its tree-walking evaluation semantics. Nodes are built by the
// compiler, own their TypeDef, and are immutable once constructed; a
// compiled Program may be shared by concurrent evaluations, each with
// its own Context.
package runtime

import (
	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/path"
	"github.com/remexlang/remex/pkg/value"
)

// CallFn is the runtime closure of a registered function.
type CallFn func(ctx *Context, args []value.Value) (value.Value, error)

// Expr is a compiled expression node. Resolve produces the node's
// value or a termination signal (*Error or *Abort).
type Expr interface {
	TypeDef() kind.TypeDef
	Resolve(ctx *Context) (value.Value, error)
	clone() Expr
}

// --- Literal ---

// Literal holds a fixed value: a source literal or a constant-folded
// subtree.
type Literal struct {
	TD    kind.TypeDef
	Value value.Value
}

func (e *Literal) TypeDef() kind.TypeDef { return e.TD }

func (e *Literal) Resolve(ctx *Context) (value.Value, error) {
	return value.Clone(e.Value), nil
}

func (e *Literal) clone() Expr {
	return &Literal{TD: e.TD, Value: value.Clone(e.Value)}
}

// --- Container literals ---

type ArrayLit struct {
	TD       kind.TypeDef
	Elements []Expr
}

func (e *ArrayLit) TypeDef() kind.TypeDef { return e.TD }

func (e *ArrayLit) Resolve(ctx *Context) (value.Value, error) {
	items := make([]value.Value, len(e.Elements))
	for i, elem := range e.Elements {
		v, err := elem.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return value.NewArray(items), nil
}

func (e *ArrayLit) clone() Expr {
	return &ArrayLit{TD: e.TD, Elements: cloneExprs(e.Elements)}
}

// ObjectField is one field of an object literal, in source order.
type ObjectField struct {
	Key   string
	Value Expr
}

type ObjectLit struct {
	TD     kind.TypeDef
	Fields []ObjectField
}

func (e *ObjectLit) TypeDef() kind.TypeDef { return e.TD }

func (e *ObjectLit) Resolve(ctx *Context) (value.Value, error) {
	fields := make(map[string]value.Value, len(e.Fields))
	for _, f := range e.Fields {
		v, err := f.Value.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		fields[f.Key] = v
	}
	return value.NewObject(fields), nil
}

func (e *ObjectLit) clone() Expr {
	fields := make([]ObjectField, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = ObjectField{Key: f.Key, Value: f.Value.clone()}
	}
	return &ObjectLit{TD: e.TD, Fields: fields}
}

// --- Block ---

// Block evaluates its expressions in order and produces the value of
// the last one.
type Block struct {
	TD    kind.TypeDef
	Exprs []Expr
}

func (e *Block) TypeDef() kind.TypeDef { return e.TD }

func (e *Block) Resolve(ctx *Context) (value.Value, error) {
	var last value.Value = value.NewNull()
	for _, expr := range e.Exprs {
		v, err := expr.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (e *Block) clone() Expr {
	return &Block{TD: e.TD, Exprs: cloneExprs(e.Exprs)}
}

// --- If ---

type If struct {
	TD   kind.TypeDef
	Span ast.Span
	Cond Expr
	Then Expr
	Else Expr // nil produces null
}

func (e *If) TypeDef() kind.TypeDef { return e.TD }

func (e *If) Resolve(ctx *Context) (value.Value, error) {
	cond, err := e.Cond.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(value.Bool)
	if !ok {
		return nil, errorf(e.Span, "if condition must be a boolean, got %s", value.TypeName(cond))
	}
	if b.Value {
		return e.Then.Resolve(ctx)
	}
	if e.Else == nil {
		return value.NewNull(), nil
	}
	return e.Else.Resolve(ctx)
}

func (e *If) clone() Expr {
	out := &If{TD: e.TD, Span: e.Span, Cond: e.Cond.clone(), Then: e.Then.clone()}
	if e.Else != nil {
		out.Else = e.Else.clone()
	}
	return out
}

// --- Query ---

// SegmentExpr is one compiled path step: either a static segment or a
// runtime-computed one.
type SegmentExpr struct {
	Static  path.Segment // nil when Dynamic is set
	Dynamic Expr
}

func (s SegmentExpr) clone() SegmentExpr {
	out := SegmentExpr{Static: s.Static}
	if s.Dynamic != nil {
		out.Dynamic = s.Dynamic.clone()
	}
	return out
}

func cloneSegments(segs []SegmentExpr) []SegmentExpr {
	out := make([]SegmentExpr, len(segs))
	for i, s := range segs {
		out[i] = s.clone()
	}
	return out
}

func resolveSegments(ctx *Context, segs []SegmentExpr, span ast.Span) ([]path.Segment, error) {
	out := make([]path.Segment, len(segs))
	for i, s := range segs {
		if s.Dynamic == nil {
			out[i] = s.Static
			continue
		}
		v, err := s.Dynamic.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		seg, err := path.FromValue(v)
		if err != nil {
			return nil, errorf(span, "%s", err.Error())
		}
		out[i] = seg
	}
	return out, nil
}

// Query reads a path from the event or a variable.
type Query struct {
	TD       kind.TypeDef
	Span     ast.Span
	Root     ast.Root
	Name     string
	Segments []SegmentExpr
}

func (e *Query) TypeDef() kind.TypeDef { return e.TD }

func (e *Query) Resolve(ctx *Context) (value.Value, error) {
	var root value.Value
	switch e.Root {
	case ast.RootEvent:
		root = ctx.Target
	case ast.RootVariable:
		v, ok := ctx.Variable(e.Name)
		if !ok {
			v = value.NewNull()
		}
		root = v
	}

	segs, err := resolveSegments(ctx, e.Segments, e.Span)
	if err != nil {
		return nil, err
	}
	v, err := path.Read(root, segs)
	if err != nil {
		return nil, errorf(e.Span, "%s", err.Error())
	}
	// Containers are copied so a later write through the result cannot
	// reach back into the event or variable it was read from.
	return value.Clone(v), nil
}

func (e *Query) clone() Expr {
	return &Query{TD: e.TD, Span: e.Span, Root: e.Root, Name: e.Name, Segments: cloneSegments(e.Segments)}
}

// --- Call ---

// Call invokes a registered function through the closure bound at
// compile time.
type Call struct {
	TD   kind.TypeDef
	Span ast.Span
	Name string
	Args []Expr
	Func CallFn
}

func (e *Call) TypeDef() kind.TypeDef { return e.TD }

func (e *Call) Resolve(ctx *Context) (value.Value, error) {
	args := make([]value.Value, len(e.Args))
	for i, arg := range e.Args {
		v, err := arg.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	result, err := e.Func(ctx, args)
	if err != nil {
		if IsTerminate(err) {
			return nil, err
		}
		return nil, errorf(e.Span, "function %q failed: %s", e.Name, err.Error())
	}
	if result == nil {
		result = value.NewNull()
	}
	return result, nil
}

func (e *Call) clone() Expr {
	return &Call{TD: e.TD, Span: e.Span, Name: e.Name, Args: cloneExprs(e.Args), Func: e.Func}
}

// --- Abort ---

// AbortExpr terminates the whole program, optionally with a message.
type AbortExpr struct {
	Span    ast.Span
	Message Expr // nil for a bare abort
}

func (e *AbortExpr) TypeDef() kind.TypeDef {
	return kind.Infallible(kind.NewNever())
}

func (e *AbortExpr) Resolve(ctx *Context) (value.Value, error) {
	msg := ""
	if e.Message != nil {
		v, err := e.Message.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		if s, ok := v.(value.Bytes); ok {
			msg = s.Value
		} else {
			msg = value.ToJSONString(v)
		}
	}
	return nil, &Abort{Message: msg, Span: &e.Span}
}

func (e *AbortExpr) clone() Expr {
	out := &AbortExpr{Span: e.Span}
	if e.Message != nil {
		out.Message = e.Message.clone()
	}
	return out
}

func cloneExprs(exprs []Expr) []Expr {
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = e.clone()
	}
	return out
}
