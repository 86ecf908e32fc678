package kind

// TypeDef is the compile-time verdict for an expression: the kind of
// value it may produce and whether producing it may fail at runtime.
type TypeDef struct {
	Kind     Kind
	Fallible bool
}

// Infallible returns a TypeDef for k that cannot fail.
func Infallible(k Kind) TypeDef { return TypeDef{Kind: k} }

// Fallible returns a TypeDef for k that may fail at runtime.
func Fallible(k Kind) TypeDef { return TypeDef{Kind: k, Fallible: true} }

// Union merges two branch verdicts: the kind union, fallible if
// either side is.
func (t TypeDef) Union(o TypeDef) TypeDef {
	return TypeDef{
		Kind:     t.Kind.Union(o.Kind),
		Fallible: t.Fallible || o.Fallible,
	}
}
