package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var scriptModuleKey = &contextKey{name: "script_module"}

// WithScriptModule records the script tree module making wasm calls.
func WithScriptModule(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, scriptModuleKey, name)
}

// ScriptModuleFromContext retrieves the script module name from the context.
func ScriptModuleFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(scriptModuleKey).(string)
	return name, ok
}

// moduleName extracts the script module name from ctx, falling back to the
// wasm module name.
func moduleName(ctx context.Context, mod api.Module) string {
	if name, ok := ScriptModuleFromContext(ctx); ok {
		return name
	}
	return mod.Name()
}
