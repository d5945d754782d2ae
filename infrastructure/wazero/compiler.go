package wazero

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/dop251/goja"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/Tsuguri/embedded-js-tests/bridge"
	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/host"
)

// DefaultHostModule is the import module name of the host functions.
const DefaultHostModule = "embjs_host"

// Exports with these names are never exposed as methods.
var reservedExports = map[string]bool{
	"_initialize": true,
	"_start":      true,
	"constructor": true,
	"memoryBytes": true,
	"module":      true,
}

var (
	_ host.ModuleCompiler = (*Compiler)(nil)
	_ io.Closer           = (*Compiler)(nil)
)

// compilerConfig holds configuration for the Compiler.
type compilerConfig struct {
	hostModule       string
	logger           *slog.Logger
	output           io.Writer
	maxMessageSize   uint32
	memoryLimitPages uint32
	customHandlers   []CustomHandler
	wasi             bool
}

func defaultCompilerConfig() compilerConfig {
	return compilerConfig{
		hostModule:     DefaultHostModule,
		logger:         slog.Default(),
		output:         os.Stdout,
		maxMessageSize: DefaultMaxMessageSize,
		wasi:           true,
	}
}

// Option configures the Compiler.
type Option func(*compilerConfig)

// WithHostModuleName sets the import module name of the host functions.
func WithHostModuleName(name string) Option {
	return func(c *compilerConfig) {
		c.hostModule = name
	}
}

// WithLogger sets the logger used for log_message and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *compilerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOutput sets the sink for print and for WASI stdout/stderr.
func WithOutput(w io.Writer) Option {
	return func(c *compilerConfig) {
		if w != nil {
			c.output = w
		}
	}
}

// WithMaxMessageSize limits strings read from guest memory.
func WithMaxMessageSize(size uint32) Option {
	return func(c *compilerConfig) {
		c.maxMessageSize = size
	}
}

// WithMemoryLimitPages caps the linear memory of every instance.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *compilerConfig) {
		c.memoryLimitPages = pages
	}
}

// WithCustomHandler exports an additional host function.
func WithCustomHandler(h CustomHandler) Option {
	return func(c *compilerConfig) {
		c.customHandlers = append(c.customHandlers, h)
	}
}

// WithWASI controls whether wasi_snapshot_preview1 is available to
// modules. It is enabled by default.
func WithWASI(enabled bool) Option {
	return func(c *compilerConfig) {
		c.wasi = enabled
	}
}

// Compiler turns .wasm files into native factories. It implements
// host.ModuleCompiler and io.Closer.
type Compiler struct {
	config  compilerConfig
	ctx     context.Context
	runtime wazero.Runtime
}

// NewCompiler creates a wazero runtime with the host module instantiated.
func NewCompiler(ctx context.Context, opts ...Option) (*Compiler, error) {
	cfg := defaultCompilerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rc := wazero.NewRuntimeConfig()
	if cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	if cfg.wasi {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
		}
	}
	if err := registerHostModule(ctx, rt, cfg); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return &Compiler{config: cfg, ctx: ctx, runtime: rt}, nil
}

// Close releases the runtime and every module compiled or instantiated
// by it.
func (c *Compiler) Close() error {
	return c.runtime.Close(c.ctx)
}

// CompileModule compiles src and returns a factory whose instances wrap a
// fresh module instance. Invalid binaries fail with
// *errors.ScriptCompilationError.
func (c *Compiler) CompileModule(g *host.Guard, name, origin string, src []byte) (*host.Factory, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}

	compiled, err := c.runtime.CompileModule(c.ctx, src)
	if err != nil {
		return nil, &domainerrors.ScriptCompilationError{Name: name, Path: origin, Err: err}
	}

	cls, err := c.classFor(name, origin, compiled).Build(g)
	if err != nil {
		_ = compiled.Close(c.ctx)
		return nil, &domainerrors.ScriptCompilationError{Name: name, Path: origin, Err: err}
	}

	g.Logger().Debug("compiled wasm module", "name", name, "path", origin, "exports", len(compiled.ExportedFunctions()))
	return host.NewFactory(g, name, origin, cls.Constructor())
}

func (c *Compiler) classFor(name, origin string, compiled wazero.CompiledModule) *bridge.ClassBuilder[*Instance] {
	b := bridge.NewClass[*Instance](name).
		Constructor(func(bridge.Call[*Instance]) (*Instance, error) {
			return c.instantiate(name, compiled)
		}).
		Accessor("memoryBytes", func(i *Instance, call bridge.Call[*Instance]) (goja.Value, error) {
			return call.Runtime.ToValue(i.MemorySize()), nil
		}, nil).
		Field("module", func(*Instance) any { return origin })

	exports := compiled.ExportedFunctions()
	names := make([]string, 0, len(exports))
	for fn := range exports {
		names = append(names, fn)
	}
	sort.Strings(names)

	for _, fn := range names {
		if reservedExports[fn] {
			if fn != "_initialize" && fn != "_start" {
				c.config.logger.Warn("wasm export not exposed", "module", name, "export", fn)
			}
			continue
		}
		b.Method(fn, method(fn, exports[fn]))
	}
	return b
}

func (c *Compiler) instantiate(name string, compiled wazero.CompiledModule) (*Instance, error) {
	ctx := WithScriptModule(c.ctx, name)
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithStdout(c.config.output).
		WithStderr(c.config.output)

	mod, err := c.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate %s: %w", name, err)
	}
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}
	return &Instance{name: name, module: mod, ctx: ctx}, nil
}

func method(fn string, def api.FunctionDefinition) bridge.MethodFunc[*Instance] {
	return func(i *Instance, call bridge.Call[*Instance]) (goja.Value, error) {
		params, err := encodeParams(def, call.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", i.name, fn, err)
		}
		results, err := i.Call(fn, params...)
		if err != nil {
			return nil, err
		}
		return decodeResults(call.Runtime, def, results)
	}
}
