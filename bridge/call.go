package bridge

import (
	"github.com/dop251/goja"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
)

// Call is the context passed to native constructors, methods and accessors.
type Call[T any] struct {
	goja.FunctionCall

	// Runtime is the runtime executing the call.
	Runtime *goja.Runtime

	class    *Class[T]
	property string
}

// Arg returns the i-th argument, or undefined when it was not passed.
func (c Call[T]) Arg(i int) goja.Value {
	return c.Argument(i)
}

// Unwrap resolves an argument that must be a live instance of the same
// class.
func (c Call[T]) Unwrap(v goja.Value) (T, error) {
	return c.class.unwrap(v, c.property)
}

// Wrap exposes v as a new Owned instance of the call's class, for methods
// that return fresh native values.
func (c Call[T]) Wrap(v T) (*goja.Object, error) {
	b, err := c.class.bind(c.Runtime.CreateObject(c.class.proto), v, entities.Owned)
	if err != nil {
		return nil, err
	}
	return b.Object(), nil
}

// Property returns the name of the member being invoked ("constructor" for
// the constructor).
func (c Call[T]) Property() string {
	return c.property
}

// throw raises err as a script exception carrying the Go error.
func throw(vm *goja.Runtime, err error) {
	panic(vm.NewGoError(err))
}

// mismatch builds the error for a receiver or argument that is not backed
// by a live payload of class.
func mismatch(class, property, got string, err error) error {
	return &domainerrors.NativeTypeMismatchError{Class: class, Property: property, Got: got, Err: err}
}
