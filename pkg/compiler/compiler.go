// Package compiler implements the Remex tree builder: it walks the
// input syntax tree, infers a TypeDef for every expression, and emits
// a directly executable runtime tree plus diagnostics. Compilation
// keeps going past fatal diagnostics so every error surfaces in one
// pass; a program is returned only when none were fatal.
package compiler

import (
	"regexp"

	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/diag"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/value"
)

type compiler struct {
	fns    *registry.Registry
	diags  *diag.Collector
	scope  *Scope
	config *Config
	nodes  NodeSet
	// target tracks the inferred shape of the event record as
	// assignments refine it; queries narrow against it.
	target kind.Kind
}

// Compile type-checks a program against the registered functions and
// returns the executable tree. The diagnostics are in visit order; if
// any is fatal the program is nil.
func Compile(program *ast.Program, fns *registry.Registry, opts ...Option) (*runtime.Program, []diag.Diagnostic) {
	c := &compiler{
		fns:    fns,
		diags:  &diag.Collector{},
		scope:  NewScope(),
		config: NewConfig(),
		nodes:  AllNodes(),
		target: kind.NewObject(),
	}
	for _, opt := range opts {
		opt(c)
	}

	exprs, _ := c.compileSeq(program.Exprs, true)

	if c.diags.HasFatal() {
		return nil, c.diags.Drain()
	}
	return &runtime.Program{Exprs: exprs}, c.diags.Drain()
}

// compileSeq compiles an expression sequence, diagnosing code that
// follows an abort as unreachable while still compiling it. At the
// root level, fallible expressions whose error nothing handles get a
// warning.
func (c *compiler) compileSeq(exprs []ast.Expr, root bool) ([]runtime.Expr, kind.TypeDef) {
	compiled := make([]runtime.Expr, 0, len(exprs))
	td := kind.Infallible(kind.NewNull())
	fallible := false
	reachable := true
	warned := false

	for _, e := range exprs {
		if !reachable && !warned {
			span := e.NodeSpan()
			c.diags.Warn("unreachable code: the preceding abort always terminates the program", &span)
			warned = true
		}

		node := c.compileExpr(e)
		nodeTD := node.TypeDef()
		if root && nodeTD.Fallible {
			span := e.NodeSpan()
			c.diags.Warn("this expression may fail at runtime; unhandled, the error terminates the program", &span)
		}

		compiled = append(compiled, node)
		fallible = fallible || nodeTD.Fallible
		if reachable {
			td = nodeTD
		}
		if nodeTD.Kind.IsNever() {
			reachable = false
		}
	}

	if !reachable {
		td = kind.Infallible(kind.NewNever())
	}
	td.Fallible = fallible
	return compiled, td
}

func (c *compiler) compileExpr(e ast.Expr) runtime.Expr {
	if !c.nodes[e.Kind()] {
		span := e.NodeSpan()
		c.diags.Errorf(&span, "%s expressions are not enabled", e.Kind())
	}

	switch n := e.(type) {
	case *ast.IntLiteral:
		return &runtime.Literal{TD: kind.Infallible(kind.NewInteger()), Value: value.NewInt(n.Value)}

	case *ast.FloatLiteral:
		return &runtime.Literal{TD: kind.Infallible(kind.NewFloat()), Value: value.NewFloat(n.Value)}

	case *ast.BoolLiteral:
		return &runtime.Literal{TD: kind.Infallible(kind.NewBoolean()), Value: value.NewBool(n.Value)}

	case *ast.StrLiteral:
		return &runtime.Literal{TD: kind.Infallible(kind.NewBytes()), Value: value.NewBytes(n.Value)}

	case *ast.NullLiteral:
		return c.nullExpr()

	case *ast.RegexLiteral:
		re, err := regexp.Compile(n.Pattern)
		if err != nil {
			span := n.Span
			c.diags.Errorf(&span, "invalid regular expression: %s", err.Error())
			return c.nullExpr()
		}
		return &runtime.Literal{TD: kind.Infallible(kind.NewRegex()), Value: value.NewRegex(re)}

	case *ast.ArrayExpr:
		return c.compileArray(n)

	case *ast.ObjectExpr:
		return c.compileObject(n)

	case *ast.Block:
		return c.compileBlock(n)

	case *ast.UnaryExpr:
		return c.compileUnary(n)

	case *ast.BinaryExpr:
		return c.compileBinary(n)

	case *ast.Assignment:
		return c.compileAssignment(n)

	case *ast.IfStatement:
		return c.compileIf(n)

	case *ast.Call:
		return c.compileCall(n)

	case *ast.Query:
		return c.compileQuery(n)

	case *ast.Abort:
		return c.compileAbort(n)
	}

	span := e.NodeSpan()
	c.diags.Errorf(&span, "unsupported expression kind %s", e.Kind())
	return c.nullExpr()
}

func (c *compiler) nullExpr() runtime.Expr {
	return &runtime.Literal{TD: kind.Infallible(kind.NewNull()), Value: value.NewNull()}
}

func (c *compiler) compileArray(n *ast.ArrayExpr) runtime.Expr {
	elems := make([]runtime.Expr, len(n.Elements))
	fallible := false
	elemKind := kind.NewNever()
	for i, elem := range n.Elements {
		node := c.compileExpr(elem)
		elems[i] = node
		td := node.TypeDef()
		fallible = fallible || td.Fallible
		elemKind = elemKind.Union(td.Kind)
	}

	k := kind.NewArray()
	if len(elems) > 0 {
		k = kind.NewArrayOf(elemKind)
	}
	return &runtime.ArrayLit{TD: kind.TypeDef{Kind: k, Fallible: fallible}, Elements: elems}
}

func (c *compiler) compileObject(n *ast.ObjectExpr) runtime.Expr {
	fields := make([]runtime.ObjectField, len(n.Pairs))
	fieldKinds := make(map[string]kind.Kind, len(n.Pairs))
	fallible := false
	for i, pair := range n.Pairs {
		node := c.compileExpr(pair.Value)
		fields[i] = runtime.ObjectField{Key: pair.Key, Value: node}
		td := node.TypeDef()
		fallible = fallible || td.Fallible
		fieldKinds[pair.Key] = td.Kind
	}
	return &runtime.ObjectLit{
		TD:     kind.TypeDef{Kind: kind.NewObjectOf(fieldKinds), Fallible: fallible},
		Fields: fields,
	}
}

func (c *compiler) compileBlock(n *ast.Block) *runtime.Block {
	exprs, td := c.compileSeq(n.Exprs, false)
	return &runtime.Block{TD: td, Exprs: exprs}
}

func (c *compiler) compileUnary(n *ast.UnaryExpr) runtime.Expr {
	operand := c.compileExpr(n.Operand)
	td := operand.TypeDef()
	span := n.Span

	var result kind.Kind
	switch n.Op {
	case ast.OpNot:
		if !td.Kind.Intersects(kind.NewBoolean()) {
			c.diags.Errorf(&span, "operand of '!' must be a boolean, got %s", td.Kind)
		}
		result = kind.NewBoolean()

	case ast.OpNeg:
		if !td.Kind.Intersects(numericKind) {
			c.diags.Errorf(&span, "operand of unary '-' must be an integer or float, got %s", td.Kind)
		}
		switch {
		case td.Kind.ContainedIn(kind.NewInteger()):
			result = kind.NewInteger()
		case td.Kind.ContainedIn(kind.NewFloat()):
			result = kind.NewFloat()
		default:
			result = numericKind
		}
	}

	// Fallibility is inherited from the operand; the operator itself
	// adds none once the kind check passed.
	return &runtime.Unary{
		TD:      kind.TypeDef{Kind: result, Fallible: td.Fallible},
		Span:    n.Span,
		Op:      n.Op,
		Operand: operand,
	}
}

func (c *compiler) compileBinary(n *ast.BinaryExpr) runtime.Expr {
	left := c.compileExpr(n.Left)
	right := c.compileExpr(n.Right)
	lTD, rTD := left.TypeDef(), right.TypeDef()
	span := n.Span

	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		boolean := kind.NewBoolean()
		if !lTD.Kind.Intersects(boolean) {
			c.diags.Errorf(&span, "left operand of '%s' must be a boolean, got %s", string(n.Op), lTD.Kind)
		}
		if !rTD.Kind.Intersects(boolean) {
			c.diags.Errorf(&span, "right operand of '%s' must be a boolean, got %s", string(n.Op), rTD.Kind)
		}
		exact := lTD.Kind.Is(kind.Boolean) && rTD.Kind.Is(kind.Boolean)
		return &runtime.Binary{
			TD:    kind.TypeDef{Kind: boolean, Fallible: lTD.Fallible || rTD.Fallible || !exact},
			Span:  n.Span,
			Op:    n.Op,
			Left:  left,
			Right: right,
		}
	}

	v := binaryVerdict(n.Op, lTD.Kind, rTD.Kind)
	result := v.result
	if !v.possible {
		c.diags.Errorf(&span, "invalid operands for '%s': %s and %s", string(n.Op), lTD.Kind, rTD.Kind)
		result = kind.NewAny()
	} else if !v.guaranteed {
		c.diags.Warnf(&span, "operands of '%s' may be incompatible at runtime (%s and %s)",
			string(n.Op), lTD.Kind, rTD.Kind)
	}

	return &runtime.Binary{
		TD: kind.TypeDef{
			Kind:     result,
			Fallible: lTD.Fallible || rTD.Fallible || !v.guaranteed || v.alwaysFallible,
		},
		Span:  n.Span,
		Op:    n.Op,
		Left:  left,
		Right: right,
	}
}

func (c *compiler) compileIf(n *ast.IfStatement) runtime.Expr {
	cond := c.compileExpr(n.Cond)
	condTD := cond.TypeDef()
	span := n.Span
	if !condTD.Kind.Intersects(kind.NewBoolean()) {
		c.diags.Errorf(&span, "if condition must be a boolean, got %s", condTD.Kind)
	}

	parentTarget := c.target
	parentScope := c.scope

	thenScope := parentScope.Fork()
	c.scope = thenScope
	thenNode := c.compileBlock(n.Then)
	thenTarget := c.target

	elseScope := parentScope.Fork()
	elseTD := kind.Infallible(kind.NewNull())
	elseTarget := parentTarget
	var elseNode runtime.Expr
	if n.Else != nil {
		c.scope = elseScope
		c.target = parentTarget
		elseBlock := c.compileBlock(n.Else)
		elseNode = elseBlock
		elseTD = elseBlock.TD
		elseTarget = c.target
	}

	c.scope = parentScope
	parentScope.Merge(thenScope, elseScope)
	c.target = thenTarget.Union(elseTarget)

	td := thenNode.TD.Union(elseTD)
	td.Fallible = td.Fallible || condTD.Fallible || !condTD.Kind.Is(kind.Boolean)

	return &runtime.If{TD: td, Span: n.Span, Cond: cond, Then: thenNode, Else: elseNode}
}

func (c *compiler) compileAbort(n *ast.Abort) runtime.Expr {
	var msg runtime.Expr
	if n.Message != nil {
		msg = c.compileExpr(n.Message)
		if !msg.TypeDef().Kind.Intersects(kind.NewBytes()) {
			span := n.Span
			c.diags.Errorf(&span, "abort message must be a string, got %s", msg.TypeDef().Kind)
		}
	}
	return &runtime.AbortExpr{Span: n.Span, Message: msg}
}
