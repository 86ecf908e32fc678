package runtime

import (
	"time"

	"github.com/remexlang/remex/pkg/value"
)

// Context is the runtime record one evaluation runs against: the
// mutable target event, the local variable store, and ambient
// metadata. A Context is owned exclusively by one evaluation call;
// the evaluator keeps no state outside it.
type Context struct {
	// Target is the event record under transformation. Mutations
	// committed here before a termination signal remain committed.
	Target value.Value

	vars map[string]value.Value
	now  time.Time
}

// NewContext creates a Context for the given target event. The
// ambient timestamp is captured once at construction.
func NewContext(target value.Value) *Context {
	if target == nil {
		target = value.NewObject(nil)
	}
	return &Context{
		Target: target,
		vars:   make(map[string]value.Value),
		now:    time.Now(),
	}
}

// WithNow overrides the ambient timestamp; tests use this to pin
// time-dependent functions.
func (c *Context) WithNow(t time.Time) *Context {
	c.now = t
	return c
}

// Now returns the ambient timestamp of this evaluation.
func (c *Context) Now() time.Time {
	return c.now
}

// Variable looks up a local variable.
func (c *Context) Variable(name string) (value.Value, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// SetVariable binds a local variable.
func (c *Context) SetVariable(name string, v value.Value) {
	c.vars[name] = v
}
