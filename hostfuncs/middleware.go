package hostfuncs

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dop251/goja"
)

// Middleware is a function that wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next Handler) Handler

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that converts Go panics into
// script exceptions carrying a *PanicError, instead of unwinding through the
// engine. Panics with a script value are intentional throws and pass through,
// as do interrupts and stack overflows, which scripts must not catch.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(hc HostContext, call goja.FunctionCall) goja.Value {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if _, ok := r.(goja.Value); ok || IsUncatchable(r) {
					panic(r)
				}
				panic(hc.Runtime().NewGoError(&PanicError{Function: hc.FunctionName(), Value: r}))
			}()
			return next(hc, call)
		}
	}
}

// IsUncatchable reports whether a recovered panic value is a goja interrupt
// or stack overflow. Such panics have to keep unwinding to the Go caller.
func IsUncatchable(r any) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}
	var interrupted *goja.InterruptedError
	var overflow *goja.StackOverflowError
	return errors.As(err, &interrupted) || errors.As(err, &overflow)
}

// LoggingMiddleware returns a middleware that logs host function invocations
// at debug level. Calls that blocked the script thread also report for how
// long.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(hc HostContext, call goja.FunctionCall) goja.Value {
			start := time.Now()
			logger.DebugContext(hc, "invoking host function",
				"function", hc.FunctionName(),
				"args", len(call.Arguments))
			res := next(hc, call)
			attrs := []any{"function", hc.FunctionName(), "duration", time.Since(start)}
			if d, ok := hc.GetValue(blockedKey{}); ok {
				attrs = append(attrs, "blocked", d)
			}
			logger.DebugContext(hc, "host function completed", attrs...)
			return res
		}
	}
}
