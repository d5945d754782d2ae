package hostfuncs

import (
	"io"
	"strings"

	"github.com/dop251/goja"
)

// ConsoleBundle returns a bundle with console.log writing to w.
func ConsoleBundle(w io.Writer) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]Handler{
			"console.log": consoleLog(w),
		},
	}
}

// consoleLog stringifies each argument with the engine's string conversion
// and writes them space-separated as one line. It never throws: write errors
// are dropped and arguments whose conversion throws are printed as
// "[unprintable]".
func consoleLog(w io.Writer) Handler {
	return func(_ HostContext, call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = SafeString(arg)
		}
		_, _ = io.WriteString(w, strings.Join(parts, " ")+"\n")
		return goja.Undefined()
	}
}

// SafeString converts v with the engine's string conversion, returning
// "[unprintable]" when the conversion itself throws. Interrupts propagate.
func SafeString(v goja.Value) (s string) {
	if v == nil {
		return "undefined"
	}
	defer func() {
		if r := recover(); r != nil {
			if IsUncatchable(r) {
				panic(r)
			}
			s = "[unprintable]"
		}
	}()
	return v.String()
}
