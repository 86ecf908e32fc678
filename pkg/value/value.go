// Package value defines the Remex runtime value model: a tagged union
// matching the kind lattice's categories, with nested array and
// object variants.
package value

import (
	"regexp"
	"time"

	"github.com/remexlang/remex/pkg/kind"
)

// Value is the interface for all Remex runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Null represents a null value.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Int represents an integer value.
type Int struct {
	Value int64
}

func (Int) value() {}

// Float represents a floating-point value.
type Float struct {
	Value float64
}

func (Float) value() {}

// Bytes represents a string value.
type Bytes struct {
	Value string
}

func (Bytes) value() {}

// Timestamp represents a point in time.
type Timestamp struct {
	Value time.Time
}

func (Timestamp) value() {}

// Regex wraps a compiled regular expression.
type Regex struct {
	Value *regexp.Regexp
}

func (Regex) value() {}

// Array represents an ordered sequence of values.
type Array struct {
	Items []Value
}

func (Array) value() {}

// Object represents a mapping from field names to values. Key order
// is not significant.
type Object struct {
	Fields map[string]Value
}

func (Object) value() {}

// NewNull creates a null value.
func NewNull() Value { return Null{} }

// NewBool creates a boolean value.
func NewBool(b bool) Value { return Bool{Value: b} }

// NewInt creates an integer value.
func NewInt(i int64) Value { return Int{Value: i} }

// NewFloat creates a float value.
func NewFloat(f float64) Value { return Float{Value: f} }

// NewBytes creates a string value.
func NewBytes(s string) Value { return Bytes{Value: s} }

// NewTimestamp creates a timestamp value.
func NewTimestamp(t time.Time) Value { return Timestamp{Value: t} }

// NewRegex creates a regex value from a compiled pattern.
func NewRegex(re *regexp.Regexp) Value { return Regex{Value: re} }

// NewArray creates an array value.
func NewArray(items []Value) Value { return Array{Items: items} }

// NewObject creates an object value. A nil map is normalized to an
// empty one so callers can mutate the result through paths.
func NewObject(fields map[string]Value) Value {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Object{Fields: fields}
}

// KindOf returns the exact kind of a concrete value. Arrays and
// objects report their observed element and field kinds.
func KindOf(v Value) kind.Kind {
	switch val := v.(type) {
	case Null:
		return kind.NewNull()
	case Bool:
		return kind.NewBoolean()
	case Int:
		return kind.NewInteger()
	case Float:
		return kind.NewFloat()
	case Bytes:
		return kind.NewBytes()
	case Timestamp:
		return kind.NewTimestamp()
	case Regex:
		return kind.NewRegex()
	case Array:
		if len(val.Items) == 0 {
			return kind.NewArray()
		}
		elem := KindOf(val.Items[0])
		for _, item := range val.Items[1:] {
			elem = elem.Union(KindOf(item))
		}
		return kind.NewArrayOf(elem)
	case Object:
		fields := make(map[string]kind.Kind, len(val.Fields))
		for name, f := range val.Fields {
			fields[name] = KindOf(f)
		}
		return kind.NewObjectOf(fields)
	default:
		return kind.NewAny()
	}
}

// TypeName returns the category name of a value for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Int:
		return "integer"
	case Float:
		return "float"
	case Bytes:
		return "string"
	case Timestamp:
		return "timestamp"
	case Regex:
		return "regex"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Clone returns a deep copy of v. Scalars are shared (they are
// immutable); arrays and objects are copied recursively.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		items := make([]Value, len(val.Items))
		for i, item := range val.Items {
			items[i] = Clone(item)
		}
		return Array{Items: items}
	case Object:
		fields := make(map[string]Value, len(val.Fields))
		for name, f := range val.Fields {
			fields[name] = Clone(f)
		}
		return Object{Fields: fields}
	default:
		return v
	}
}

// DeepEqual recursively compares two values.
func DeepEqual(a, b Value) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok

	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value

	case Int:
		bv, ok := b.(Int)
		return ok && av.Value == bv.Value

	case Float:
		bv, ok := b.(Float)
		return ok && av.Value == bv.Value

	case Bytes:
		bv, ok := b.(Bytes)
		return ok && av.Value == bv.Value

	case Timestamp:
		bv, ok := b.(Timestamp)
		return ok && av.Value.Equal(bv.Value)

	case Regex:
		bv, ok := b.(Regex)
		return ok && av.Value.String() == bv.Value.String()

	case Array:
		bv, ok := b.(Array)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !DeepEqual(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true

	case Object:
		bv, ok := b.(Object)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for name, fa := range av.Fields {
			fb, found := bv.Fields[name]
			if !found || !DeepEqual(fa, fb) {
				return false
			}
		}
		return true
	}

	return false
}
