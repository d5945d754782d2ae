package hostfuncs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja"
)

// HandlerRegistry is an immutable collection of named host functions.
// Once created via NewRegistry, handlers cannot be added or removed, so one
// registry can be installed into any number of runtimes.
type HandlerRegistry struct {
	handlers   map[string]Handler
	names      []string // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	handlers   map[string]Handler
	middleware []Middleware
	errors     []error
}

// NewRegistry creates an immutable HandlerRegistry with the given options.
// Returns an error if any handler name is invalid or registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(ConsoleBundle(os.Stdout)),
//	    WithBundle(TimerBundle()),
//	    WithHandler("host.version", versionHandler),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{
		handlers: make(map[string]Handler),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := checkPrefixes(names); err != nil {
		return nil, err
	}

	// Apply middleware chain to all handlers (FIFO order)
	wrapped := make(map[string]Handler, len(b.handlers))
	for name, handler := range b.handlers {
		h := handler
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		wrapped[name] = h
	}

	return &HandlerRegistry{
		handlers:   wrapped,
		names:      names,
		middleware: b.middleware,
	}, nil
}

// Install defines every handler on target as a native function. Dotted
// names walk or create plain intermediate objects. Installing over an
// existing defined property fails; nothing is installed in that case
// unless the conflict is only found mid-way through a dotted path.
func (r *HandlerRegistry) Install(ctx context.Context, vm *goja.Runtime, target *goja.Object) error {
	for _, name := range r.names {
		parts := strings.Split(name, ".")
		leaf := parts[len(parts)-1]
		if v := lookupPath(target, parts); v != nil && !goja.IsUndefined(v) {
			return fmt.Errorf("install %s: property already defined", name)
		}

		cur := target
		for _, part := range parts[:len(parts)-1] {
			next := cur.Get(part)
			if next == nil || goja.IsUndefined(next) {
				obj := vm.NewObject()
				if err := cur.Set(part, obj); err != nil {
					return fmt.Errorf("install %s: %w", name, err)
				}
				cur = obj
				continue
			}
			obj, ok := next.(*goja.Object)
			if !ok {
				return fmt.Errorf("install %s: %s is not an object", name, part)
			}
			cur = obj
		}

		fn := r.bind(ctx, vm, name)
		if err := cur.Set(leaf, fn); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}
	return nil
}

// Invoke calls a handler directly from Go, outside of any script frame.
// A thrown script value is returned as an error.
func (r *HandlerRegistry) Invoke(ctx context.Context, vm *goja.Runtime, name string, args ...goja.Value) (res goja.Value, err error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}

	defer func() {
		if p := recover(); p != nil {
			v, ok := p.(goja.Value)
			if !ok {
				panic(p)
			}
			if cause := goErrorCause(v); cause != nil {
				err = cause
				return
			}
			err = fmt.Errorf("host function %s threw: %s", name, v.String())
		}
	}()

	res = handler(NewHostContext(ctx, name, vm), goja.FunctionCall{This: goja.Undefined(), Arguments: args})
	if res == nil {
		res = goja.Undefined()
	}
	return res, nil
}

// Has returns true if a handler with the given name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns a sorted list of all registered handler names.
func (r *HandlerRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

func (r *HandlerRegistry) bind(ctx context.Context, vm *goja.Runtime, name string) goja.Value {
	handler := r.handlers[name]
	return vm.ToValue(func(call goja.FunctionCall) goja.Value {
		res := handler(NewHostContext(ctx, name, vm), call)
		if res == nil {
			return goja.Undefined()
		}
		return res
	})
}

// addHandler registers a handler with the given name.
// Returns an error if the name is malformed or already registered.
func (b *registryBuilder) addHandler(name string, handler Handler) error {
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return fmt.Errorf("invalid handler name %q", name)
		}
	}
	if handler == nil {
		return fmt.Errorf("handler %q is nil", name)
	}
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("duplicate handler name: %q", name)
	}
	b.handlers[name] = handler
	return nil
}

// checkPrefixes rejects a name that is also used as an intermediate object
// of another name ("console" next to "console.log").
func checkPrefixes(sorted []string) error {
	for i := 0; i+1 < len(sorted); i++ {
		if strings.HasPrefix(sorted[i+1], sorted[i]+".") {
			return fmt.Errorf("handler name %q is a prefix of %q", sorted[i], sorted[i+1])
		}
	}
	return nil
}

func lookupPath(obj *goja.Object, parts []string) goja.Value {
	var v goja.Value = obj
	for _, part := range parts {
		o, ok := v.(*goja.Object)
		if !ok {
			return nil
		}
		v = o.Get(part)
		if v == nil {
			return nil
		}
	}
	return v
}

// goErrorCause returns the Go error carried by a GoError thrown with Throw.
func goErrorCause(v goja.Value) error {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	inner := obj.Get("value")
	if inner == nil {
		return nil
	}
	err, _ := inner.Export().(error)
	return err
}

// WithHandler registers a Handler with the given dotted name.
func WithHandler(name string, handler Handler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(name, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
