// Package stdlib provides the default function set for Remex programs.
package stdlib

import (
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/value"
)

// RegisterDefaults adds all stdlib functions.
func RegisterDefaults(r *registry.Registry) {
	// String ops
	r.Register(fnUpcase())
	r.Register(fnDowncase())
	r.Register(fnLength())
	r.Register(fnContains())
	r.Register(fnStartsWith())
	r.Register(fnEndsWith())
	r.Register(fnSplit())
	r.Register(fnJoin())
	r.Register(fnReplace())
	r.Register(fnMatch())

	// Conversions
	r.Register(fnToString())
	r.Register(fnToInt())
	r.Register(fnToFloat())
	r.Register(fnToBool())

	// Object ops
	r.Register(fnMerge())

	// Event path ops
	r.Register(fnDel())
	r.Register(fnExists())

	// Parse/encode
	r.Register(fnParseJSON())
	r.Register(fnEncodeJSON())
	r.Register(fnParseYAML())

	// Time
	r.Register(fnNow())
	r.Register(fnFormatTimestamp())
	r.Register(fnParseTimestamp())

	// Misc
	r.Register(fnUniqueID())
	r.Register(fnAssert())
}

// NewRegistry builds a registry preloaded with the default function set.
func NewRegistry() *registry.Registry {
	r := registry.NewRegistry()
	RegisterDefaults(r)
	return r
}

// pure wraps a fold function as a runtime call that ignores the
// context. The fold sees no ambient config at runtime.
func pure(f registry.FoldFn) runtime.CallFn {
	return func(_ *runtime.Context, args []value.Value) (value.Value, error) {
		return f(nil, args)
	}
}
