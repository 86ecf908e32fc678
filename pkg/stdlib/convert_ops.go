package stdlib

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/value"
)

// to_string(value: any) → bytes
func fnToString() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		switch v := args[0].(type) {
		case value.Bytes:
			return v, nil
		case value.Int:
			return value.NewBytes(strconv.FormatInt(v.Value, 10)), nil
		case value.Float:
			return value.NewBytes(strconv.FormatFloat(v.Value, 'g', -1, 64)), nil
		case value.Bool:
			return value.NewBytes(strconv.FormatBool(v.Value)), nil
		case value.Null:
			return value.NewBytes(""), nil
		case value.Timestamp:
			return value.NewBytes(v.Value.Format(time.RFC3339Nano)), nil
		case value.Regex:
			return value.NewBytes(v.Value.String()), nil
		default:
			return nil, fmt.Errorf("to_string: cannot convert %s", value.TypeName(args[0]))
		}
	}
	return registry.Func{
		Name:     "to_string",
		Params:   []registry.Param{{Name: "value", Kind: kind.NewAny(), Required: true}},
		Return:   kind.NewBytes(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}

// to_int(value: any) → integer
func fnToInt() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		switch v := args[0].(type) {
		case value.Int:
			return v, nil
		case value.Float:
			return value.NewInt(int64(v.Value)), nil
		case value.Bool:
			if v.Value {
				return value.NewInt(1), nil
			}
			return value.NewInt(0), nil
		case value.Bytes:
			n, err := strconv.ParseInt(v.Value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("to_int: %q is not an integer", v.Value)
			}
			return value.NewInt(n), nil
		case value.Timestamp:
			return value.NewInt(v.Value.Unix()), nil
		default:
			return nil, fmt.Errorf("to_int: cannot convert %s", value.TypeName(args[0]))
		}
	}
	return registry.Func{
		Name:     "to_int",
		Params:   []registry.Param{{Name: "value", Kind: kind.NewAny(), Required: true}},
		Return:   kind.NewInteger(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}

// to_float(value: any) → float
func fnToFloat() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		switch v := args[0].(type) {
		case value.Float:
			return v, nil
		case value.Int:
			return value.NewFloat(float64(v.Value)), nil
		case value.Bool:
			if v.Value {
				return value.NewFloat(1), nil
			}
			return value.NewFloat(0), nil
		case value.Bytes:
			f, err := strconv.ParseFloat(v.Value, 64)
			if err != nil || math.IsNaN(f) {
				return nil, fmt.Errorf("to_float: %q is not a number", v.Value)
			}
			return value.NewFloat(f), nil
		default:
			return nil, fmt.Errorf("to_float: cannot convert %s", value.TypeName(args[0]))
		}
	}
	return registry.Func{
		Name:     "to_float",
		Params:   []registry.Param{{Name: "value", Kind: kind.NewAny(), Required: true}},
		Return:   kind.NewFloat(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}

// to_bool(value: any) → boolean
func fnToBool() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		switch v := args[0].(type) {
		case value.Bool:
			return v, nil
		case value.Null:
			return value.NewBool(false), nil
		case value.Int:
			return value.NewBool(v.Value != 0), nil
		case value.Float:
			return value.NewBool(v.Value != 0), nil
		case value.Bytes:
			b, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil, fmt.Errorf("to_bool: %q is not a boolean", v.Value)
			}
			return value.NewBool(b), nil
		default:
			return nil, fmt.Errorf("to_bool: cannot convert %s", value.TypeName(args[0]))
		}
	}
	return registry.Func{
		Name:     "to_bool",
		Params:   []registry.Param{{Name: "value", Kind: kind.NewAny(), Required: true}},
		Return:   kind.NewBoolean(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}
