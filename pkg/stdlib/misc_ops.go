package stdlib

import (
	"errors"
	"fmt"

	"github.com/segmentio/ksuid"

	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/value"
)

// unique_id() → bytes; a K-sortable unique identifier.
func fnUniqueID() registry.Func {
	return registry.Func{
		Name:   "unique_id",
		Return: kind.NewBytes(),
		Call: func(_ *runtime.Context, _ []value.Value) (value.Value, error) {
			return value.NewBytes(ksuid.New().String()), nil
		},
	}
}

// assert(condition: boolean, message?: bytes) → boolean
func fnAssert() registry.Func {
	fold := func(_ registry.Config, args []value.Value) (value.Value, error) {
		cond, ok := args[0].(value.Bool)
		if !ok {
			return nil, fmt.Errorf("assert: 'condition' must be a boolean, got %s", value.TypeName(args[0]))
		}
		if !cond.Value {
			if len(args) > 1 {
				msg, err := argBytes("assert", "message", args[1])
				if err != nil {
					return nil, err
				}
				return nil, errors.New(msg)
			}
			return nil, errors.New("assertion failed")
		}
		return value.NewBool(true), nil
	}
	return registry.Func{
		Name: "assert",
		Params: []registry.Param{
			{Name: "condition", Kind: kind.NewBoolean(), Required: true},
			{Name: "message", Kind: kind.NewBytes()},
		},
		Return:   kind.NewBoolean(),
		MayError: true,
		Fold:     fold,
		Call:     pure(fold),
	}
}
