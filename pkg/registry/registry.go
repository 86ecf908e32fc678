// Package registry defines the function registration contract the
// compiler resolves calls against. The registry is populated by the
// host (the default set lives in pkg/stdlib) and read-only during
// compilation, so it may be shared across concurrent compilations.
package registry

import (
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/value"
)

// Param declares one parameter of a registered function.
type Param struct {
	Name string
	// Kind constrains the argument; an argument whose kind is disjoint
	// from it is a guaranteed mismatch.
	Kind kind.Kind
	// Required parameters form the minimum arity; optional ones must
	// trail them.
	Required bool
	// Variadic is only valid on the last parameter and accepts any
	// number of trailing arguments.
	Variadic bool
}

// Config is the read-only view of the ambient host objects (lookup
// tables, enrichment data) supplied to a compilation. Keys follow the
// context-key convention: unexported struct types owned by the
// registering package. A nil Config has no entries.
type Config interface {
	Get(key any) (any, bool)
}

// FoldFn is an optional compile-time constant-fold hook, invoked when
// every argument is a literal. A fold error is a fatal diagnostic.
type FoldFn func(cfg Config, args []value.Value) (value.Value, error)

// Func describes a callable function.
type Func struct {
	Name   string
	Params []Param
	// Return is the kind the call may produce.
	Return kind.Kind
	// MayError marks functions that can fail at runtime even with
	// well-typed arguments.
	MayError bool
	Fold     FoldFn
	Call     runtime.CallFn
}

// MinArgs returns the number of required parameters.
func (f *Func) MinArgs() int {
	n := 0
	for _, p := range f.Params {
		if p.Required {
			n++
		}
	}
	return n
}

// MaxArgs returns the maximum accepted argument count, or -1 when the
// function is variadic.
func (f *Func) MaxArgs() int {
	if len(f.Params) > 0 && f.Params[len(f.Params)-1].Variadic {
		return -1
	}
	return len(f.Params)
}

// Registry holds registered functions by name.
type Registry struct {
	fns map[string]*Func
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Func),
	}
}

// Register adds a function to the registry, replacing any previous
// registration under the same name.
func (r *Registry) Register(fn Func) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a function by name.
func (r *Registry) Get(name string) (*Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Names returns the registered function names in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	return names
}
