package compiler

import (
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
)

// Config is the type-keyed registry of ambient objects (lookup
// tables, enrichment data) available to function compilation. It is
// opaque to the core: entries go in and come out by key, nothing is
// inspected or serialized. Fold hooks receive it through the
// registry.Config view.
type Config struct {
	entries map[any]any
}

var _ registry.Config = (*Config)(nil)

// NewConfig creates an empty Config.
func NewConfig() *Config {
	return &Config{entries: make(map[any]any)}
}

// Set stores val under key. Keys follow the context-key convention:
// unexported struct types owned by the registering package.
func (c *Config) Set(key, val any) {
	c.entries[key] = val
}

// Get retrieves the entry stored under key. A nil Config has no
// entries.
func (c *Config) Get(key any) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries[key]
	return v, ok
}

// NodeSet is the capability set of syntax node kinds the compiler
// accepts, keyed by ast node Kind strings. Compiling a node kind
// absent from the set is a fatal diagnostic.
type NodeSet map[string]bool

// AllNodes returns a NodeSet enabling every node kind.
func AllNodes() NodeSet {
	return NodeSet{
		"IntLiteral":   true,
		"FloatLiteral": true,
		"BoolLiteral":  true,
		"StrLiteral":   true,
		"NullLiteral":  true,
		"RegexLiteral": true,
		"ArrayExpr":    true,
		"ObjectExpr":   true,
		"Block":        true,
		"UnaryExpr":    true,
		"BinaryExpr":   true,
		"Assignment":   true,
		"Call":         true,
		"IfStatement":  true,
		"Query":        true,
		"Abort":        true,
	}
}

// Option configures a compilation.
type Option func(*compiler)

// WithConfig supplies the ambient compile-time object registry.
func WithConfig(cfg *Config) Option {
	return func(c *compiler) {
		c.config = cfg
	}
}

// WithNodes restricts the set of accepted node kinds.
func WithNodes(nodes NodeSet) Option {
	return func(c *compiler) {
		c.nodes = nodes
	}
}

// WithTargetKind supplies a known shape for the target event, letting
// queries against schema'd pipelines narrow further than the default
// unconstrained object.
func WithTargetKind(k kind.Kind) Option {
	return func(c *compiler) {
		c.target = k
	}
}
