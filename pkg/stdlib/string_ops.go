package stdlib

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/value"
)

// upcase(value: bytes) → bytes
func fnUpcase() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("upcase", "value", args[0])
		if err != nil {
			return nil, err
		}
		return value.NewBytes(cases.Upper(language.Und).String(s)), nil
	}
	return registry.Func{
		Name:   "upcase",
		Params: []registry.Param{{Name: "value", Kind: kind.NewBytes(), Required: true}},
		Return: kind.NewBytes(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// downcase(value: bytes) → bytes
func fnDowncase() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("downcase", "value", args[0])
		if err != nil {
			return nil, err
		}
		return value.NewBytes(cases.Lower(language.Und).String(s)), nil
	}
	return registry.Func{
		Name:   "downcase",
		Params: []registry.Param{{Name: "value", Kind: kind.NewBytes(), Required: true}},
		Return: kind.NewBytes(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// length(value: bytes|array|object) → integer
func fnLength() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		switch v := args[0].(type) {
		case value.Bytes:
			return value.NewInt(int64(len(v.Value))), nil
		case value.Array:
			return value.NewInt(int64(len(v.Items))), nil
		case value.Object:
			return value.NewInt(int64(len(v.Fields))), nil
		default:
			return nil, fmt.Errorf("length: 'value' must be a string, array or object, got %s", value.TypeName(args[0]))
		}
	}
	return registry.Func{
		Name: "length",
		Params: []registry.Param{{
			Name:     "value",
			Kind:     kind.Of(kind.Bytes | kind.Array | kind.Object),
			Required: true,
		}},
		Return: kind.NewInteger(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// contains(value: bytes, substring: bytes) → boolean
func fnContains() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("contains", "value", args[0])
		if err != nil {
			return nil, err
		}
		sub, err := argBytes("contains", "substring", args[1])
		if err != nil {
			return nil, err
		}
		return value.NewBool(strings.Contains(s, sub)), nil
	}
	return registry.Func{
		Name: "contains",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewBytes(), Required: true},
			{Name: "substring", Kind: kind.NewBytes(), Required: true},
		},
		Return: kind.NewBoolean(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// starts_with(value: bytes, prefix: bytes) → boolean
func fnStartsWith() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("starts_with", "value", args[0])
		if err != nil {
			return nil, err
		}
		prefix, err := argBytes("starts_with", "prefix", args[1])
		if err != nil {
			return nil, err
		}
		return value.NewBool(strings.HasPrefix(s, prefix)), nil
	}
	return registry.Func{
		Name: "starts_with",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewBytes(), Required: true},
			{Name: "prefix", Kind: kind.NewBytes(), Required: true},
		},
		Return: kind.NewBoolean(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// ends_with(value: bytes, suffix: bytes) → boolean
func fnEndsWith() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("ends_with", "value", args[0])
		if err != nil {
			return nil, err
		}
		suffix, err := argBytes("ends_with", "suffix", args[1])
		if err != nil {
			return nil, err
		}
		return value.NewBool(strings.HasSuffix(s, suffix)), nil
	}
	return registry.Func{
		Name: "ends_with",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewBytes(), Required: true},
			{Name: "suffix", Kind: kind.NewBytes(), Required: true},
		},
		Return: kind.NewBoolean(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// split(value: bytes, pattern: bytes|regex, limit?: integer) → array of bytes
func fnSplit() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("split", "value", args[0])
		if err != nil {
			return nil, err
		}
		limit := -1
		if len(args) > 2 {
			n, err := argInt("split", "limit", args[2])
			if err != nil {
				return nil, err
			}
			limit = int(n)
		}
		var parts []string
		switch pat := args[1].(type) {
		case value.Bytes:
			parts = strings.SplitN(s, pat.Value, limit)
		case value.Regex:
			parts = pat.Value.Split(s, limit)
		default:
			return nil, fmt.Errorf("split: 'pattern' must be a string or regex, got %s", value.TypeName(args[1]))
		}
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.NewBytes(p)
		}
		return value.NewArray(items), nil
	}
	return registry.Func{
		Name: "split",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewBytes(), Required: true},
			{Name: "pattern", Kind: kind.Of(kind.Bytes | kind.Regex), Required: true},
			{Name: "limit", Kind: kind.NewInteger()},
		},
		Return: kind.NewArrayOf(kind.NewBytes()),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// join(value: array, separator?: bytes) → bytes
func fnJoin() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		arr, ok := args[0].(value.Array)
		if !ok {
			return nil, fmt.Errorf("join: 'value' must be an array, got %s", value.TypeName(args[0]))
		}
		sep := ""
		if len(args) > 1 {
			s, err := argBytes("join", "separator", args[1])
			if err != nil {
				return nil, err
			}
			sep = s
		}
		parts := make([]string, len(arr.Items))
		for i, item := range arr.Items {
			s, ok := item.(value.Bytes)
			if !ok {
				return nil, fmt.Errorf("join: element %d is not a string, got %s", i, value.TypeName(item))
			}
			parts[i] = s.Value
		}
		return value.NewBytes(strings.Join(parts, sep)), nil
	}
	return registry.Func{
		Name: "join",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewArray(), Required: true},
			{Name: "separator", Kind: kind.NewBytes()},
		},
		Return:   kind.NewBytes(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}

// replace(value: bytes, pattern: bytes|regex, with: bytes, count?: integer) → bytes
func fnReplace() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("replace", "value", args[0])
		if err != nil {
			return nil, err
		}
		with, err := argBytes("replace", "with", args[2])
		if err != nil {
			return nil, err
		}
		count := -1
		if len(args) > 3 {
			n, err := argInt("replace", "count", args[3])
			if err != nil {
				return nil, err
			}
			count = int(n)
		}
		switch pat := args[1].(type) {
		case value.Bytes:
			return value.NewBytes(strings.Replace(s, pat.Value, with, count)), nil
		case value.Regex:
			return value.NewBytes(replaceRegex(pat.Value, s, with, count)), nil
		default:
			return nil, fmt.Errorf("replace: 'pattern' must be a string or regex, got %s", value.TypeName(args[1]))
		}
	}
	return registry.Func{
		Name: "replace",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewBytes(), Required: true},
			{Name: "pattern", Kind: kind.Of(kind.Bytes | kind.Regex), Required: true},
			{Name: "with", Kind: kind.NewBytes(), Required: true},
			{Name: "count", Kind: kind.NewInteger()},
		},
		Return: kind.NewBytes(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

func replaceRegex(re *regexp.Regexp, s, with string, count int) string {
	if count < 0 {
		return re.ReplaceAllString(s, with)
	}
	done := 0
	return re.ReplaceAllStringFunc(s, func(m string) string {
		if done >= count {
			return m
		}
		done++
		return re.ReplaceAllString(m, with)
	})
}

// match(value: bytes, pattern: regex) → boolean
func fnMatch() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("match", "value", args[0])
		if err != nil {
			return nil, err
		}
		pat, ok := args[1].(value.Regex)
		if !ok {
			return nil, fmt.Errorf("match: 'pattern' must be a regex, got %s", value.TypeName(args[1]))
		}
		return value.NewBool(pat.Value.MatchString(s)), nil
	}
	return registry.Func{
		Name: "match",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewBytes(), Required: true},
			{Name: "pattern", Kind: kind.NewRegex(), Required: true},
		},
		Return: kind.NewBoolean(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

func argBytes(fn, name string, v value.Value) (string, error) {
	b, ok := v.(value.Bytes)
	if !ok {
		return "", fmt.Errorf("%s: '%s' must be a string, got %s", fn, name, value.TypeName(v))
	}
	return b.Value, nil
}

func argInt(fn, name string, v value.Value) (int64, error) {
	n, ok := v.(value.Int)
	if !ok {
		return 0, fmt.Errorf("%s: '%s' must be an integer, got %s", fn, name, value.TypeName(v))
	}
	return n.Value, nil
}
