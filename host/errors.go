package host

import (
	"errors"

	"github.com/dop251/goja"

	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/hostfuncs"
)

// runtimeError converts an error returned by goja into a
// *errors.ScriptRuntimeError. A thrown GoError unwraps to the Go error it
// carries, so callers can match bridge errors with errors.As.
func runtimeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var sre *domainerrors.ScriptRuntimeError
	if errors.As(err, &sre) {
		return err
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		val := exc.Error()
		if v := exc.Value(); v != nil {
			val = hostfuncs.SafeString(v)
		}
		return &domainerrors.ScriptRuntimeError{Op: op, Value: val, Err: thrownCause(exc)}
	}

	return &domainerrors.ScriptRuntimeError{Op: op, Value: err.Error(), Err: err}
}

// thrownCause returns the Go error behind a thrown GoError, or exc itself.
func thrownCause(exc *goja.Exception) (cause error) {
	cause = exc
	defer func() {
		if r := recover(); r != nil {
			if hostfuncs.IsUncatchable(r) {
				panic(r)
			}
			cause = exc
		}
	}()

	obj, ok := exc.Value().(*goja.Object)
	if !ok {
		return cause
	}
	inner := obj.Get("value")
	if inner == nil {
		return cause
	}
	if err, ok := inner.Export().(error); ok {
		return err
	}
	return cause
}

// recoverRuntime turns script exceptions that escape goja as panics (for
// example from a throwing getter read through the Go API) into errors.
// Other panics are re-raised. It must be deferred directly.
func recoverRuntime(op string, errp *error) {
	handlePanic(recover(), op, errp, nil)
}

// recoverCompile is recoverRuntime for module evaluation: the runtime error
// is reported as a compilation failure of the module.
func recoverCompile(name, origin, op string, errp *error) {
	handlePanic(recover(), op, errp, func(err error) error {
		return &domainerrors.ScriptCompilationError{Name: name, Path: origin, Err: err}
	})
}

func handlePanic(r any, op string, errp *error, wrap func(error) error) {
	if r == nil {
		return
	}
	var err error
	switch v := r.(type) {
	case *goja.Exception:
		err = runtimeError(op, v)
	case *goja.InterruptedError:
		err = runtimeError(op, v)
	case goja.Value:
		err = &domainerrors.ScriptRuntimeError{Op: op, Value: hostfuncs.SafeString(v)}
	default:
		panic(r)
	}
	if wrap != nil {
		err = wrap(err)
	}
	*errp = err
}
