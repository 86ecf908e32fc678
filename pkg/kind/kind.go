// Package kind implements the Kind lattice: the set of possible value
// shapes an expression may produce, with union, containment, and
// exactness operations.
package kind

import (
	"sort"
	"strings"
)

// Category identifies a single value-shape category as a bit flag.
type Category uint16

const (
	Bytes Category = 1 << iota
	Integer
	Float
	Boolean
	Timestamp
	Regex
	Null
	Array
	Object
)

const allCategories = Bytes | Integer | Float | Boolean | Timestamp | Regex | Null | Array | Object

var categoryNames = []struct {
	cat  Category
	name string
}{
	{Bytes, "string"},
	{Integer, "integer"},
	{Float, "float"},
	{Boolean, "boolean"},
	{Timestamp, "timestamp"},
	{Regex, "regex"},
	{Null, "null"},
	{Array, "array"},
	{Object, "object"},
}

// Kind is a lattice element over value-shape categories. The zero
// value is the bottom element ("never"), produced only by abort
// expressions. Kinds are immutable; all operations return new values.
type Kind struct {
	bits Category
	any  bool
	// elem is the array element kind; nil with the Array bit set means
	// the element shape is unconstrained.
	elem *Kind
	// fields maps known object field names to their kinds; nil with
	// the Object bit set means the field shapes are unconstrained.
	fields map[string]Kind
	// open marks an object whose recorded fields are partial: names
	// absent from fields may still exist at runtime with any shape.
	// A closed object (open false, fields non-nil) is exhaustive, so
	// an absent field is guaranteed absent.
	open bool
}

// NewNever returns the bottom element.
func NewNever() Kind { return Kind{} }

// NewAny returns the top element, containing every category.
func NewAny() Kind { return Kind{any: true} }

// NewBytes returns the string/bytes kind.
func NewBytes() Kind { return Kind{bits: Bytes} }

// NewInteger returns the integer kind.
func NewInteger() Kind { return Kind{bits: Integer} }

// NewFloat returns the float kind.
func NewFloat() Kind { return Kind{bits: Float} }

// NewBoolean returns the boolean kind.
func NewBoolean() Kind { return Kind{bits: Boolean} }

// NewTimestamp returns the timestamp kind.
func NewTimestamp() Kind { return Kind{bits: Timestamp} }

// NewRegex returns the regex kind.
func NewRegex() Kind { return Kind{bits: Regex} }

// NewNull returns the null kind.
func NewNull() Kind { return Kind{bits: Null} }

// NewArray returns the array kind with an unconstrained element shape.
func NewArray() Kind { return Kind{bits: Array} }

// NewArrayOf returns the array kind whose elements all conform to elem.
func NewArrayOf(elem Kind) Kind {
	e := elem
	return Kind{bits: Array, elem: &e}
}

// NewObject returns the object kind with unconstrained field shapes.
func NewObject() Kind { return Kind{bits: Object} }

// NewObjectOf returns the object kind with exactly the given fields;
// a field absent from the map is guaranteed absent at runtime.
func NewObjectOf(fields map[string]Kind) Kind {
	copied := make(map[string]Kind, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Kind{bits: Object, fields: copied}
}

// Numeric returns integer|float.
func Numeric() Kind { return Kind{bits: Integer | Float} }

// Of returns a kind containing exactly the given categories.
func Of(cats Category) Kind { return Kind{bits: cats} }

// IsNever reports whether k is the bottom element.
func (k Kind) IsNever() bool { return !k.any && k.bits == 0 }

// IsAny reports whether k is the top element.
func (k Kind) IsAny() bool { return k.any || k.bits == allCategories }

// Contains reports whether k may produce a value of the given category.
func (k Kind) Contains(cat Category) bool {
	if k.any {
		return true
	}
	return k.bits&cat != 0
}

// IsExact reports whether k denotes exactly one category.
func (k Kind) IsExact() bool {
	if k.any {
		return false
	}
	return k.bits != 0 && k.bits&(k.bits-1) == 0
}

// Is reports whether k denotes exactly the given single category.
func (k Kind) Is(cat Category) bool { return k.IsExact() && k.bits == cat }

// Intersects reports whether k and o share at least one category.
func (k Kind) Intersects(o Kind) bool {
	if k.IsNever() || o.IsNever() {
		return false
	}
	if k.any || o.any {
		return true
	}
	return k.bits&o.bits != 0
}

// ContainedIn reports whether every category of k is also in o.
// The bottom element is contained in everything.
func (k Kind) ContainedIn(o Kind) bool {
	if k.IsNever() || o.any {
		return true
	}
	if k.any {
		return o.bits == allCategories
	}
	return k.bits&^o.bits == 0
}

// Element returns the array element kind. The second result is false
// when k has no array part or the element shape is unconstrained.
func (k Kind) Element() (Kind, bool) {
	if k.any || k.bits&Array == 0 || k.elem == nil {
		return NewAny(), false
	}
	return *k.elem, true
}

// Field returns the kind recorded for an object field. The second
// result is false when the field shape is unknown.
func (k Kind) Field(name string) (Kind, bool) {
	if k.any || k.bits&Object == 0 || k.fields == nil {
		return NewAny(), false
	}
	f, ok := k.fields[name]
	if !ok {
		return NewAny(), false
	}
	return f, true
}

// FieldsClosed reports whether k's object fields are exhaustively
// known, so a field absent from them is guaranteed absent at runtime.
// Open objects (an unconstrained object refined by later writes) keep
// their unrecorded fields unconstrained.
func (k Kind) FieldsClosed() bool {
	return !k.any && k.fields != nil && !k.open
}

// Fields returns a copy of the known object field kinds, or nil when
// the field shapes are unconstrained.
func (k Kind) Fields() map[string]Kind {
	if k.any || k.fields == nil {
		return nil
	}
	copied := make(map[string]Kind, len(k.fields))
	for name, f := range k.fields {
		copied[name] = f
	}
	return copied
}

// WithField returns k with the given object field kind recorded,
// adding the object category if absent. Used by the compiler to track
// the event shape as assignments narrow it.
func (k Kind) WithField(name string, f Kind) Kind {
	out := Kind{bits: k.bits | Object, any: k.any, elem: k.elem}
	// Refining an unconstrained object keeps the remainder open.
	out.open = k.open || k.any || (k.bits&Object != 0 && k.fields == nil)
	out.fields = make(map[string]Kind, len(k.fields)+1)
	for n, existing := range k.fields {
		out.fields[n] = existing
	}
	out.fields[name] = f
	return out
}

// Union returns the smallest kind containing both k and o. Union is
// commutative, associative, and idempotent.
func (k Kind) Union(o Kind) Kind {
	if k.any || o.any {
		return NewAny()
	}
	out := Kind{bits: k.bits | o.bits}

	if out.bits&Array != 0 {
		switch {
		case k.bits&Array == 0:
			out.elem = o.elem
		case o.bits&Array == 0:
			out.elem = k.elem
		case k.elem != nil && o.elem != nil:
			e := k.elem.Union(*o.elem)
			out.elem = &e
		}
	}

	if out.bits&Object != 0 {
		switch {
		case k.bits&Object == 0:
			out.fields = o.fields
			out.open = o.open
		case o.bits&Object == 0:
			out.fields = k.fields
			out.open = k.open
		case k.fields != nil && o.fields != nil:
			out.fields = unionFields(k.fields, o.fields, k.open, o.open)
			out.open = k.open || o.open
		}
	}

	return out
}

// A field known on one side only unions with what the other side
// admits for it: null when that side's fields are closed (the field is
// then guaranteed absent), any when that side is open.
func unionFields(a, b map[string]Kind, aOpen, bOpen bool) map[string]Kind {
	out := make(map[string]Kind, len(a)+len(b))
	for name, ka := range a {
		switch kb, ok := b[name]; {
		case ok:
			out[name] = ka.Union(kb)
		case bOpen:
			out[name] = NewAny()
		default:
			out[name] = ka.Union(NewNull())
		}
	}
	for name, kb := range b {
		if _, ok := a[name]; ok {
			continue
		}
		if aOpen {
			out[name] = NewAny()
		} else {
			out[name] = kb.Union(NewNull())
		}
	}
	return out
}

// Equal reports whether k and o denote the same kind, including any
// known array element and object field shapes.
func (k Kind) Equal(o Kind) bool {
	if k.any != o.any || k.bits != o.bits || k.open != o.open {
		return false
	}
	if (k.elem == nil) != (o.elem == nil) {
		return false
	}
	if k.elem != nil && !k.elem.Equal(*o.elem) {
		return false
	}
	if (k.fields == nil) != (o.fields == nil) {
		return false
	}
	if len(k.fields) != len(o.fields) {
		return false
	}
	for name, kf := range k.fields {
		of, ok := o.fields[name]
		if !ok || !kf.Equal(of) {
			return false
		}
	}
	return true
}

// String renders k for diagnostics, e.g. "integer|float" or
// "array<string>".
func (k Kind) String() string {
	if k.any {
		return "any"
	}
	if k.bits == 0 {
		return "never"
	}
	var parts []string
	for _, cn := range categoryNames {
		if k.bits&cn.cat == 0 {
			continue
		}
		switch {
		case cn.cat == Array && k.elem != nil:
			parts = append(parts, "array<"+k.elem.String()+">")
		case cn.cat == Object && k.fields != nil:
			names := make([]string, 0, len(k.fields))
			for name := range k.fields {
				names = append(names, name)
			}
			sort.Strings(names)
			var fields []string
			for _, name := range names {
				f := k.fields[name]
				fields = append(fields, name+": "+f.String())
			}
			parts = append(parts, "object{"+strings.Join(fields, ", ")+"}")
		default:
			parts = append(parts, cn.name)
		}
	}
	return strings.Join(parts, "|")
}
