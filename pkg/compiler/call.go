package compiler

import (
	"strconv"

	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/value"
)

func (c *compiler) compileCall(n *ast.Call) runtime.Expr {
	span := n.Span

	fn, ok := c.fns.Get(n.Name)
	if !ok {
		c.diags.Errorf(&span, "unknown function %q", n.Name)
		// Compile the arguments anyway so their own errors surface.
		for _, arg := range n.Args {
			c.compileExpr(arg)
		}
		return c.nullExpr()
	}

	args := make([]runtime.Expr, len(n.Args))
	for i, arg := range n.Args {
		args[i] = c.compileExpr(arg)
	}

	if len(args) < fn.MinArgs() || (fn.MaxArgs() >= 0 && len(args) > fn.MaxArgs()) {
		c.diags.Errorf(&span, "function %q expects %s arguments, got %d",
			n.Name, arityString(fn), len(args))
		return c.nullExpr()
	}

	fallible := fn.MayError
	mismatch := false
	for i, arg := range args {
		param := paramAt(fn, i)
		td := arg.TypeDef()
		fallible = fallible || td.Fallible

		if !td.Kind.Intersects(param.Kind) {
			argSpan := n.Args[i].NodeSpan()
			c.diags.Errorf(&argSpan, "argument %q of %q must be %s, got %s",
				param.Name, n.Name, param.Kind, td.Kind)
			mismatch = true
			continue
		}
		if !td.Kind.ContainedIn(param.Kind) {
			argSpan := n.Args[i].NodeSpan()
			c.diags.Warnf(&argSpan, "argument %q of %q may not be %s at runtime (inferred %s)",
				param.Name, n.Name, param.Kind, td.Kind)
			fallible = true
		}
	}

	// Constant-fold when every argument is a literal and the function
	// offers a fold hook.
	if fn.Fold != nil && !mismatch {
		if lits, ok := literalArgs(args); ok {
			folded, err := fn.Fold(c.config, lits)
			if err != nil {
				c.diags.Errorf(&span, "call to %q always fails: %s", n.Name, err.Error())
				return c.nullExpr()
			}
			return &runtime.Literal{TD: kind.Infallible(value.KindOf(folded)), Value: folded}
		}
	}

	return &runtime.Call{
		TD:   kind.TypeDef{Kind: fn.Return, Fallible: fallible},
		Span: n.Span,
		Name: n.Name,
		Args: args,
		Func: fn.Call,
	}
}

func paramAt(fn *registry.Func, i int) registry.Param {
	if i < len(fn.Params) {
		return fn.Params[i]
	}
	return fn.Params[len(fn.Params)-1]
}

func arityString(fn *registry.Func) string {
	min, max := fn.MinArgs(), fn.MaxArgs()
	switch {
	case max < 0:
		return "at least " + strconv.Itoa(min)
	case min == max:
		return strconv.Itoa(min)
	default:
		return strconv.Itoa(min) + " to " + strconv.Itoa(max)
	}
}

func literalArgs(args []runtime.Expr) ([]value.Value, bool) {
	lits := make([]value.Value, len(args))
	for i, arg := range args {
		lit, ok := arg.(*runtime.Literal)
		if !ok {
			return nil, false
		}
		lits[i] = lit.Value
	}
	return lits, true
}
