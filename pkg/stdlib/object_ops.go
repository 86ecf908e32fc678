package stdlib

import (
	"fmt"

	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/value"
)

// merge(to: object, from: object, deep?: boolean) → object
func fnMerge() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		to, ok := args[0].(value.Object)
		if !ok {
			return nil, fmt.Errorf("merge: 'to' must be an object, got %s", value.TypeName(args[0]))
		}
		from, ok := args[1].(value.Object)
		if !ok {
			return nil, fmt.Errorf("merge: 'from' must be an object, got %s", value.TypeName(args[1]))
		}
		deep := false
		if len(args) > 2 {
			b, ok := args[2].(value.Bool)
			if !ok {
				return nil, fmt.Errorf("merge: 'deep' must be a boolean, got %s", value.TypeName(args[2]))
			}
			deep = b.Value
		}
		return mergeObjects(to, from, deep), nil
	}
	return registry.Func{
		Name: "merge",
		Params: []registry.Param{
			{Name: "to", Kind: kind.NewObject(), Required: true},
			{Name: "from", Kind: kind.NewObject(), Required: true},
			{Name: "deep", Kind: kind.NewBoolean()},
		},
		Return: kind.NewObject(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

func mergeObjects(to, from value.Object, deep bool) value.Value {
	fields := make(map[string]value.Value, len(to.Fields)+len(from.Fields))
	for k, v := range to.Fields {
		fields[k] = value.Clone(v)
	}
	for k, v := range from.Fields {
		if deep {
			if lo, ok := fields[k].(value.Object); ok {
				if ro, ok := v.(value.Object); ok {
					fields[k] = mergeObjects(lo, ro, true)
					continue
				}
			}
		}
		fields[k] = value.Clone(v)
	}
	return value.NewObject(fields)
}
