// Package path reads and writes nested fields of a value tree by
// address. It serves the runtime (I/O against the target record) and
// the compiler (shape narrowing for queries).
package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/value"
)

// Segment is one step of a resolved path: a field name or an index.
// Runtime-computed segments are converted to one of these before
// resolution.
type Segment interface {
	segment() // sealed marker
	String() string
}

// Field addresses an object field by name.
type Field struct {
	Name string
}

func (Field) segment()         {}
func (f Field) String() string { return "." + f.Name }

// Index addresses an array element by position.
type Index struct {
	Index int
}

func (Index) segment()         {}
func (i Index) String() string { return "[" + strconv.Itoa(i.Index) + "]" }

// Error is a path-resolution failure: a segment applied to a value
// whose shape cannot satisfy it.
type Error struct {
	Segment Segment
	Got     string
}

func (e *Error) Error() string {
	switch e.Segment.(type) {
	case Field:
		return fmt.Sprintf("cannot read field %q of %s", e.Segment.(Field).Name, e.Got)
	case Index:
		return fmt.Sprintf("cannot index %s", e.Got)
	}
	return "path resolution failed"
}

// String renders a path for messages, e.g. ".a.b[0]".
func String(segs []Segment) string {
	if len(segs) == 0 {
		return "."
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.String())
	}
	return b.String()
}

// FromValue converts a runtime-computed value into a segment: strings
// become field names, integers become indexes.
func FromValue(v value.Value) (Segment, error) {
	switch val := v.(type) {
	case value.Bytes:
		return Field{Name: val.Value}, nil
	case value.Int:
		return Index{Index: int(val.Value)}, nil
	default:
		return nil, fmt.Errorf("path segment must be a string or integer, got %s", value.TypeName(v))
	}
}

// Read resolves a path against root. A field or index that is simply
// absent reads as null; a segment applied to the wrong container
// category is a path error.
func Read(root value.Value, segs []Segment) (value.Value, error) {
	current := root
	for _, seg := range segs {
		if _, isNull := current.(value.Null); isNull {
			return value.NewNull(), nil
		}
		switch s := seg.(type) {
		case Field:
			obj, ok := current.(value.Object)
			if !ok {
				return nil, &Error{Segment: seg, Got: value.TypeName(current)}
			}
			f, found := obj.Fields[s.Name]
			if !found {
				return value.NewNull(), nil
			}
			current = f

		case Index:
			arr, ok := current.(value.Array)
			if !ok {
				return nil, &Error{Segment: seg, Got: value.TypeName(current)}
			}
			idx := s.Index
			if idx < 0 {
				idx += len(arr.Items)
			}
			if idx < 0 || idx >= len(arr.Items) {
				return value.NewNull(), nil
			}
			current = arr.Items[idx]
		}
	}
	return current, nil
}

// Write commits val at the given path under root, creating
// intermediate containers implied by each segment's kind ("upsert").
// A value in the way whose category does not match the segment is
// replaced wholesale, so writes are total. The possibly replaced root
// is returned; callers must store it back.
func Write(root value.Value, segs []Segment, val value.Value) value.Value {
	if len(segs) == 0 {
		return val
	}

	seg := segs[0]
	rest := segs[1:]

	switch s := seg.(type) {
	case Field:
		obj, ok := root.(value.Object)
		if !ok {
			obj = value.NewObject(nil).(value.Object)
		}
		obj.Fields[s.Name] = Write(obj.Fields[s.Name], rest, val)
		return obj

	case Index:
		arr, ok := root.(value.Array)
		if !ok {
			arr = value.Array{}
		}
		idx := s.Index
		if idx < 0 {
			idx += len(arr.Items)
			if idx < 0 {
				idx = 0
			}
		}
		items := arr.Items
		for len(items) <= idx {
			items = append(items, value.NewNull())
		}
		items[idx] = Write(items[idx], rest, val)
		return value.Array{Items: items}
	}

	return root
}

// Delete removes the field or element addressed by the path and
// returns the removed value (null when nothing was there).
func Delete(root value.Value, segs []Segment) (value.Value, error) {
	if len(segs) == 0 {
		return value.NewNull(), nil
	}
	parent, err := Read(root, segs[:len(segs)-1])
	if err != nil {
		return nil, err
	}
	switch s := segs[len(segs)-1].(type) {
	case Field:
		obj, ok := parent.(value.Object)
		if !ok {
			return value.NewNull(), nil
		}
		removed, found := obj.Fields[s.Name]
		if !found {
			return value.NewNull(), nil
		}
		delete(obj.Fields, s.Name)
		return removed, nil
	case Index:
		// Array element deletion would reindex siblings; the language
		// only deletes fields, so treat it as a no-op read.
		arr, ok := parent.(value.Array)
		if !ok {
			return value.NewNull(), nil
		}
		if s.Index < 0 || s.Index >= len(arr.Items) {
			return value.NewNull(), nil
		}
		return arr.Items[s.Index], nil
	}
	return value.NewNull(), nil
}

// Narrow walks a path through a compile-time root kind, returning the
// kind a read of that path may produce and whether the read may fail.
func Narrow(root kind.Kind, segs []Segment) (kind.Kind, bool) {
	current := root
	fallible := false
	for _, seg := range segs {
		if current.IsAny() {
			return kind.NewAny(), true
		}
		switch s := seg.(type) {
		case Field:
			if !current.Contains(kind.Object) {
				// Guaranteed path error at runtime.
				return kind.NewNull(), true
			}
			if !current.Is(kind.Object) {
				fallible = true
			}
			f, known := current.Field(s.Name)
			if !known {
				if current.FieldsClosed() {
					// Shape exhaustively known and field absent: reads null.
					f = kind.NewNull()
				} else {
					f = kind.NewAny()
				}
			}
			current = f

		case Index:
			if !current.Contains(kind.Array) {
				return kind.NewNull(), true
			}
			if !current.Is(kind.Array) {
				fallible = true
			}
			elem, known := current.Element()
			if !known {
				elem = kind.NewAny()
			}
			// The index may be out of range, which reads null.
			current = elem.Union(kind.NewNull())
		}
	}
	return current, fallible
}

// Insert records at compile time that a write through the path
// produces leaf at its end, returning the updated root kind. Used by
// the compiler to track the event shape across assignments.
func Insert(root kind.Kind, segs []Segment, leaf kind.Kind) kind.Kind {
	if len(segs) == 0 {
		return leaf
	}
	switch s := segs[0].(type) {
	case Field:
		existing, known := root.Field(s.Name)
		if !known {
			existing = kind.NewNever()
		}
		return root.WithField(s.Name, Insert(existing, segs[1:], leaf))
	case Index:
		// Element positions are not tracked individually; widen the
		// element kind.
		child := Insert(kind.NewNever(), segs[1:], leaf)
		if elem, known := root.Element(); known {
			child = child.Union(elem)
		}
		return kind.NewArrayOf(child)
	}
	return root
}
