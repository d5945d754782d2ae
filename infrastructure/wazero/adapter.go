package wazero

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	hostlog "github.com/Tsuguri/embedded-js-tests/log"
)

// DefaultMaxMessageSize bounds strings read from guest memory.
const DefaultMaxMessageSize = 64 * 1024

// CustomHandler is an additional host function exported to guests.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// registerHostModule exports print, log_message and the custom handlers
// under the configured module name.
func registerHostModule(ctx context.Context, rt wazero.Runtime, cfg compilerConfig) error {
	builder := rt.NewHostModuleBuilder(cfg.hostModule)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			msg, ok := readMessage(ctx, mod, stack[0], cfg, "print")
			if !ok {
				return
			}
			_, _ = fmt.Fprintln(cfg.output, string(msg))
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export("print")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			msg, ok := readMessage(ctx, mod, stack[0], cfg, "log_message")
			if !ok {
				return
			}
			logMessage(ctx, cfg.logger, moduleName(ctx, mod), msg)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export("log_message")

	for _, ch := range cfg.customHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

// readMessage copies a packed ptr+len string out of guest memory.
func readMessage(ctx context.Context, mod api.Module, packed uint64, cfg compilerConfig, fn string) ([]byte, bool) {
	ptr, length := unpackPtrLen(packed)
	if length > cfg.maxMessageSize {
		cfg.logger.ErrorContext(ctx, "wazero: message too large",
			"function", fn, "module", moduleName(ctx, mod), "size", length, "max", cfg.maxMessageSize)
		return nil, false
	}
	mem := exportedMemory(mod)
	if mem == nil {
		cfg.logger.ErrorContext(ctx, "wazero: guest has no memory", "function", fn, "module", moduleName(ctx, mod))
		return nil, false
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		cfg.logger.ErrorContext(ctx, "wazero: failed to read guest memory", "function", fn, "module", moduleName(ctx, mod))
		return nil, false
	}
	return append([]byte(nil), data...), true
}

func logMessage(ctx context.Context, logger *slog.Logger, module string, payload []byte) {
	var msg struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.InfoContext(ctx, "wasm log (raw)", "module", module, "payload", string(payload))
		return
	}
	level, err := hostlog.ParseLevel(msg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, msg.Message, "module", module)
}

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
