package stdlib

import (
	"fmt"
	"time"

	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/value"
)

// now() → timestamp
func fnNow() registry.Func {
	return registry.Func{
		Name:   "now",
		Return: kind.NewTimestamp(),
		Call: func(ctx *runtime.Context, _ []value.Value) (value.Value, error) {
			return value.NewTimestamp(ctx.Now()), nil
		},
	}
}

// format_timestamp(value: timestamp, format: bytes) → bytes
func fnFormatTimestamp() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		ts, ok := args[0].(value.Timestamp)
		if !ok {
			return nil, fmt.Errorf("format_timestamp: 'value' must be a timestamp, got %s", value.TypeName(args[0]))
		}
		layout, err := argBytes("format_timestamp", "format", args[1])
		if err != nil {
			return nil, err
		}
		return value.NewBytes(ts.Value.Format(layout)), nil
	}
	return registry.Func{
		Name: "format_timestamp",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewTimestamp(), Required: true},
			{Name: "format", Kind: kind.NewBytes(), Required: true},
		},
		Return: kind.NewBytes(),
		Fold:   fold,
		Call:   pure(fold),
	}
}

// parse_timestamp(value: bytes, format?: bytes) → timestamp
func fnParseTimestamp() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		s, err := argBytes("parse_timestamp", "value", args[0])
		if err != nil {
			return nil, err
		}
		layout := time.RFC3339
		if len(args) > 1 {
			layout, err = argBytes("parse_timestamp", "format", args[1])
			if err != nil {
				return nil, err
			}
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return nil, fmt.Errorf("parse_timestamp: %s", err)
		}
		return value.NewTimestamp(t), nil
	}
	return registry.Func{
		Name: "parse_timestamp",
		Params: []registry.Param{
			{Name: "value", Kind: kind.NewBytes(), Required: true},
			{Name: "format", Kind: kind.NewBytes()},
		},
		Return:   kind.NewTimestamp(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}
