package stdlib

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/value"
)

// parse_json(value: bytes) → any
func fnParseJSON() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("parse_json", "value", args[0])
		if err != nil {
			return nil, err
		}
		v, err := value.FromJSON([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("parse_json: %s", err)
		}
		return v, nil
	}
	return registry.Func{
		Name:     "parse_json",
		Params:   []registry.Param{{Name: "value", Kind: kind.NewBytes(), Required: true}},
		Return:   kind.NewAny(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}

// encode_json(value: any) → bytes
func fnEncodeJSON() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		return value.NewBytes(value.ToJSONString(args[0])), nil
	}
	return registry.Func{
		Name:   "encode_json",
		Params: []registry.Param{{Name: "value", Kind: kind.NewAny(), Required: true}},
		Return: kind.NewBytes(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// parse_yaml(value: bytes) → any
func fnParseYAML() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("parse_yaml", "value", args[0])
		if err != nil {
			return nil, err
		}
		var raw any
		if err := yaml.Unmarshal([]byte(s), &raw); err != nil {
			return nil, fmt.Errorf("parse_yaml: %s", err)
		}
		return value.FromAny(normalizeYAML(raw)), nil
	}
	return registry.Func{
		Name:     "parse_yaml",
		Params:   []registry.Param{{Name: "value", Kind: kind.NewBytes(), Required: true}},
		Return:   kind.NewAny(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}

// normalizeYAML rewrites yaml.v3 map[string]any trees, forcing
// non-string keys to their string form.
func normalizeYAML(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[k] = normalizeYAML(item)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[fmt.Sprintf("%v", k)] = normalizeYAML(item)
		}
		return m
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = normalizeYAML(item)
		}
		return items
	default:
		return v
	}
}
