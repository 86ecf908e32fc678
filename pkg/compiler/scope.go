package compiler

import "github.com/remexlang/remex/pkg/kind"

// Scope is the compile-time environment mapping variable names to
// their inferred TypeDef. Lookup is innermost-first; branching
// constructs fork a flat clone per branch and merge the clones back
// by kind-union.
type Scope struct {
	vars   map[string]kind.TypeDef
	parent *Scope
}

// NewScope creates an empty root scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]kind.TypeDef)}
}

// Declare binds a name in this scope, shadowing any outer binding.
func (s *Scope) Declare(name string, td kind.TypeDef) {
	s.vars[name] = td
}

// Lookup resolves a name, innermost scope first.
func (s *Scope) Lookup(name string) (kind.TypeDef, bool) {
	if td, ok := s.vars[name]; ok {
		return td, true
	}
	if s.parent != nil {
		return s.parent.Lookup(name)
	}
	return kind.TypeDef{}, false
}

// Assign updates the innermost scope holding name, or declares it in
// this scope when undeclared.
func (s *Scope) Assign(name string, td kind.TypeDef) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = td
			return
		}
	}
	s.vars[name] = td
}

// Fork clones every visible binding into a new flat scope for one
// branch of a branching construct.
func (s *Scope) Fork() *Scope {
	child := NewScope()
	for sc := s; sc != nil; sc = sc.parent {
		for name, td := range sc.vars {
			// Innermost binding wins; do not overwrite it with an
			// outer shadowed one.
			if _, ok := child.vars[name]; !ok {
				child.vars[name] = td
			}
		}
	}
	return child
}

// Merge reunifies branch scopes into s: each identifier's TypeDef
// becomes the kind-union across all branches, with an implicit null
// contribution from branches where it is absent.
func (s *Scope) Merge(branches ...*Scope) {
	names := make(map[string]bool)
	for _, b := range branches {
		for name := range b.vars {
			names[name] = true
		}
	}

	for name := range names {
		var merged kind.TypeDef
		first := true
		for _, b := range branches {
			td, ok := b.vars[name]
			if !ok {
				td = kind.Infallible(kind.NewNull())
			}
			if first {
				merged = td
				first = false
			} else {
				merged = merged.Union(td)
			}
		}
		s.Assign(name, merged)
	}
}
