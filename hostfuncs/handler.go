package hostfuncs

import (
	"fmt"

	"github.com/dop251/goja"
)

// Handler implements one host function. Returning nil yields undefined.
// To raise a script exception a handler calls Throw.
type Handler func(hc HostContext, call goja.FunctionCall) goja.Value

// HostFunc is a typed host function taking its first script argument
// exported into Req.
type HostFunc[Req any, Resp any] func(HostContext, Req) (Resp, error)

// NewTypedHandler wraps a typed HostFunc into a Handler. The first argument
// is exported with Runtime.ExportTo and the response converted with ToValue.
// Export and handler errors are thrown into the script.
//
// Usage:
//
//	clamp := hostfuncs.NewTypedHandler(func(hc hostfuncs.HostContext, v float64) (float64, error) {
//	    return math.Min(math.Max(v, 0), 1), nil
//	})
func NewTypedHandler[Req any, Resp any](fn HostFunc[Req, Resp]) Handler {
	return func(hc HostContext, call goja.FunctionCall) goja.Value {
		vm := hc.Runtime()

		var req Req
		if err := vm.ExportTo(call.Argument(0), &req); err != nil {
			Throw(hc, fmt.Errorf("%s: invalid argument: %w", hc.FunctionName(), err))
		}

		resp, err := fn(hc, req)
		if err != nil {
			Throw(hc, err)
		}
		return vm.ToValue(resp)
	}
}

// Throw raises err as a script exception. The thrown value is a GoError
// whose "value" property holds err, so callers on the Go side can recover
// the original error with errors.As. Throw never returns.
func Throw(hc HostContext, err error) {
	panic(hc.Runtime().NewGoError(err))
}

// PanicError describes a host function that panicked with a non-script value.
type PanicError struct {
	Value    any
	Function string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("host function %s panicked: %v", e.Function, e.Value)
}

// NotFoundError is returned by Invoke for unknown names.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "unknown host function: " + e.Name
}
