package host

import (
	"io"
	"log/slog"
	"os"

	"github.com/dop251/goja_nodejs/require"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	"github.com/Tsuguri/embedded-js-tests/hostfuncs"
)

// engineConfig holds configuration for the Engine.
type engineConfig struct {
	logger         *slog.Logger
	registry       *hostfuncs.HandlerRegistry
	output         io.Writer
	nativeModules  map[string]require.ModuleLoader
	strategy       entities.ExportStrategy
	requireFolders []string
	resources      []io.Closer
	maxCallStack   int
	requireEnabled bool
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:   slog.New(slog.DiscardHandler),
		output:   os.Stdout,
		strategy: entities.ExportConstructThenUse,
	}
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger used by the engine, its loaders and the default
// host function middleware.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHostFunctions installs registry into the global object instead of the
// default console and timer bundles.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(c *engineConfig) {
		c.registry = registry
	}
}

// WithConsoleOutput sets the sink of the default console.log. It has no
// effect together with WithHostFunctions.
func WithConsoleOutput(w io.Writer) Option {
	return func(c *engineConfig) {
		c.output = w
	}
}

// WithExportStrategy sets the engine-wide default module export strategy.
func WithExportStrategy(s entities.ExportStrategy) Option {
	return func(c *engineConfig) {
		c.strategy = s
	}
}

// WithRequire enables require() inside scripts, resolving bare module names
// against folders.
func WithRequire(folders ...string) Option {
	return func(c *engineConfig) {
		c.requireEnabled = true
		c.requireFolders = append(c.requireFolders, folders...)
	}
}

// WithNativeModule makes a Go-implemented module available to require(name).
// It implies WithRequire.
func WithNativeModule(name string, loader require.ModuleLoader) Option {
	return func(c *engineConfig) {
		c.requireEnabled = true
		if c.nativeModules == nil {
			c.nativeModules = make(map[string]require.ModuleLoader)
		}
		c.nativeModules[name] = loader
	}
}

// WithRuntimeResource registers a resource of the runtime layer. Runtime
// resources are closed in reverse registration order, strictly after the
// context layer has been torn down.
func WithRuntimeResource(r io.Closer) Option {
	return func(c *engineConfig) {
		c.resources = append(c.resources, r)
	}
}

// WithMaxCallStackSize limits script recursion depth. Zero keeps the
// engine default.
func WithMaxCallStackSize(n int) Option {
	return func(c *engineConfig) {
		c.maxCallStack = n
	}
}
