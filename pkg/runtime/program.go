package runtime

import (
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/value"
)

// Program is an ordered sequence of compiled root expressions. It is
// immutable after compilation and safe to share across concurrent
// evaluations.
type Program struct {
	Exprs []Expr
}

// TypeDef returns the verdict of the final root expression; an empty
// program produces null.
func (p *Program) TypeDef() kind.TypeDef {
	if len(p.Exprs) == 0 {
		return kind.Infallible(kind.NewNull())
	}
	return p.Exprs[len(p.Exprs)-1].TypeDef()
}

// Resolve evaluates the program against ctx. Root expressions run in
// order; the first termination signal (an *Abort or an uncaught
// *Error) stops the rest, but mutations already committed to
// ctx.Target remain. The final expression's value is returned.
func (p *Program) Resolve(ctx *Context) (value.Value, error) {
	var last value.Value = value.NewNull()
	for _, expr := range p.Exprs {
		v, err := expr.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// Clone returns a structurally independent copy of the program, so
// workers can hold their own trees without shared state.
func (p *Program) Clone() *Program {
	return &Program{Exprs: cloneExprs(p.Exprs)}
}
