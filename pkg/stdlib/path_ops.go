package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/path"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/value"
)

// parsePath splits "foo.bar[0].baz" into path segments.
func parsePath(pathStr string) []path.Segment {
	pathStr = strings.TrimPrefix(pathStr, ".")
	if pathStr == "" {
		return nil
	}

	var segments []path.Segment
	// Split on dots first, then handle bracket notation
	parts := strings.Split(pathStr, ".")
	for _, part := range parts {
		if part == "" {
			continue
		}
		// Check for bracket notation: "foo[0]" or just "[0]"
		for len(part) > 0 {
			bracketIdx := strings.Index(part, "[")
			if bracketIdx < 0 {
				// No brackets, just a field
				segments = append(segments, path.Field{Name: part})
				break
			}
			if bracketIdx > 0 {
				// Field before bracket
				segments = append(segments, path.Field{Name: part[:bracketIdx]})
			}
			// Find closing bracket
			closeIdx := strings.Index(part[bracketIdx:], "]")
			if closeIdx < 0 {
				// No closing bracket, treat rest as a field
				segments = append(segments, path.Field{Name: part[bracketIdx:]})
				break
			}
			indexStr := part[bracketIdx+1 : bracketIdx+closeIdx]
			if idx, err := strconv.Atoi(indexStr); err == nil {
				segments = append(segments, path.Index{Index: idx})
			} else {
				segments = append(segments, path.Field{Name: indexStr})
			}
			part = part[bracketIdx+closeIdx+1:]
		}
	}
	return segments
}

// del(path: bytes) → any; removes a field from the event and returns it.
func fnDel() registry.Func {
	return registry.Func{
		Name:     "del",
		Params:   []registry.Param{{Name: "path", Kind: kind.NewBytes(), Required: true}},
		Return:   kind.NewAny(),
		MayError: true,
		Call: func(ctx *runtime.Context, args []value.Value) (value.Value, error) {
			p, err := argBytes("del", "path", args[0])
			if err != nil {
				return nil, err
			}
			removed, err := path.Delete(ctx.Target, parsePath(p))
			if err != nil {
				return nil, fmt.Errorf("del: %s", err)
			}
			return removed, nil
		},
	}
}

// exists(path: bytes) → boolean; true when the event path holds a value.
func fnExists() registry.Func {
	return registry.Func{
		Name:   "exists",
		Params: []registry.Param{{Name: "path", Kind: kind.NewBytes(), Required: true}},
		Return: kind.NewBoolean(),
		Call: func(ctx *runtime.Context, args []value.Value) (value.Value, error) {
			p, err := argBytes("exists", "path", args[0])
			if err != nil {
				return nil, err
			}
			segs := parsePath(p)
			v, err := path.Read(ctx.Target, segs)
			if err != nil {
				return value.NewBool(false), nil
			}
			if _, isNull := v.(value.Null); isNull {
				// A missing path reads null; distinguish a stored null
				// by checking presence on the parent.
				return value.NewBool(storedAt(ctx.Target, segs)), nil
			}
			return value.NewBool(true), nil
		},
	}
}

func storedAt(root value.Value, segs []path.Segment) bool {
	if len(segs) == 0 {
		return true
	}
	parent, err := path.Read(root, segs[:len(segs)-1])
	if err != nil {
		return false
	}
	switch s := segs[len(segs)-1].(type) {
	case path.Field:
		obj, ok := parent.(value.Object)
		if !ok {
			return false
		}
		_, found := obj.Fields[s.Name]
		return found
	case path.Index:
		arr, ok := parent.(value.Array)
		if !ok {
			return false
		}
		i := s.Index
		if i < 0 {
			i += len(arr.Items)
		}
		return i >= 0 && i < len(arr.Items)
	}
	return false
}
