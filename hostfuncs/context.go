package hostfuncs

import (
	"context"

	"github.com/dop251/goja"
)

// HostContext wraps a standard context.Context with host function-specific helpers.
// It provides access to the invoked function name and the calling runtime,
// and allows middleware to store call-scoped values.
type HostContext interface {
	context.Context

	// FunctionName returns the dotted name of the host function being invoked.
	FunctionName() string

	// Runtime returns the runtime the call originates from. It is only valid
	// for the duration of the call.
	Runtime() *goja.Runtime

	// SetValue stores a call-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext.
	SetValue(key, value any)

	// GetValue retrieves a call-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	vm       *goja.Runtime
	values   map[any]any
	funcName string
}

// NewHostContext creates a new HostContext wrapping the given context.
func NewHostContext(ctx context.Context, funcName string, vm *goja.Runtime) HostContext {
	return &hostContext{
		Context:  ctx,
		vm:       vm,
		funcName: funcName,
	}
}

func (c *hostContext) FunctionName() string {
	return c.funcName
}

func (c *hostContext) Runtime() *goja.Runtime {
	return c.vm
}

func (c *hostContext) SetValue(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}
