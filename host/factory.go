package host

import (
	"os"
	"path/filepath"

	"github.com/dop251/goja"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
)

// notAFunction is the compilation message for modules whose value cannot
// be constructed.
const notAFunction = "Not a function"

// Factory is a constructible script value. Constructing it yields an
// Instance; it may be constructed any number of times.
type Factory struct {
	name   string
	origin string
	value  *goja.Object
	ctor   goja.Constructor
}

// factoryConfig holds per-call factory options.
type factoryConfig struct {
	strategy entities.ExportStrategy
	origin   string
}

// FactoryOption configures FromSource and FromPath.
type FactoryOption func(*factoryConfig)

// WithStrategy overrides the engine's export strategy for one module.
func WithStrategy(s entities.ExportStrategy) FactoryOption {
	return func(c *factoryConfig) {
		c.strategy = s
	}
}

// WithOrigin records where the source came from; it is used for error
// messages and in namespace snapshots.
func WithOrigin(origin string) FactoryOption {
	return func(c *factoryConfig) {
		c.origin = origin
	}
}

// NewFactory wraps an already constructible value, such as a native
// constructor built by the bridge.
func NewFactory(g *Guard, name, origin string, v goja.Value) (*Factory, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	return newFactory(name, origin, v)
}

func newFactory(name, origin string, v goja.Value) (*Factory, error) {
	obj, isObj := v.(*goja.Object)
	ctor, ok := goja.AssertConstructor(v)
	if !ok || !isObj {
		return nil, &domainerrors.ScriptCompilationError{Name: name, Path: origin, Message: notAFunction}
	}
	return &Factory{name: name, origin: origin, value: obj, ctor: ctor}, nil
}

// FromSource compiles src into a factory.
//
// With entities.ExportConstructThenUse the source must evaluate to a
// constructible wrapper, which is constructed once with no arguments; the
// constructed value is the factory. With entities.ExportDirectValue the
// evaluated value is the factory. Parse failures, exceptions while
// evaluating or constructing, and non-constructible values all fail with
// *errors.ScriptCompilationError.
func FromSource(g *Guard, name, src string, opts ...FactoryOption) (f *Factory, err error) {
	if err := g.Check(); err != nil {
		return nil, err
	}

	cfg := factoryConfig{strategy: g.engine.config.strategy}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.strategy.Valid() {
		return nil, &domainerrors.ScriptCompilationError{Name: name, Path: cfg.origin, Message: "unknown export strategy " + string(cfg.strategy)}
	}

	compileName := cfg.origin
	if compileName == "" {
		compileName = name
	}
	prog, err := goja.Compile(compileName, src, false)
	if err != nil {
		return nil, &domainerrors.ScriptCompilationError{Name: name, Path: cfg.origin, Err: err}
	}

	defer recoverCompile(name, cfg.origin, "evaluate module "+name, &err)

	v, err := g.Runtime().RunProgram(prog)
	if err != nil {
		return nil, &domainerrors.ScriptCompilationError{Name: name, Path: cfg.origin, Err: runtimeError("evaluate module "+name, err)}
	}

	if cfg.strategy == entities.ExportConstructThenUse {
		wrapper, ok := goja.AssertConstructor(v)
		if !ok {
			return nil, &domainerrors.ScriptCompilationError{Name: name, Path: cfg.origin, Message: notAFunction}
		}
		obj, err := wrapper(v.(*goja.Object))
		if err != nil {
			return nil, &domainerrors.ScriptCompilationError{Name: name, Path: cfg.origin, Err: runtimeError("construct module "+name, err)}
		}
		v = obj
	}

	return newFactory(name, cfg.origin, v)
}

// FromPath reads the file at path and compiles it with FromSource. The
// factory is named after the file stem.
func FromPath(g *Guard, path string, opts ...FactoryOption) (*Factory, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &domainerrors.ScriptSourceReadError{Op: "read", Path: path, Err: err}
	}

	opts = append([]FactoryOption{WithOrigin(path)}, opts...)
	return FromSource(g, fileStem(filepath.Base(path)), string(src), opts...)
}

// Name returns the factory name.
func (f *Factory) Name() string { return f.name }

// Origin returns the source path, or "" for inline and native factories.
func (f *Factory) Origin() string { return f.origin }

// Value returns the constructible script value.
func (f *Factory) Value() *goja.Object { return f.value }

// New constructs the factory with args converted by Runtime.ToValue and
// wraps the result as an Instance. A thrown exception fails with
// *errors.ScriptRuntimeError.
func (f *Factory) New(g *Guard, args ...any) (inst *Instance, err error) {
	if err := g.Check(); err != nil {
		return nil, err
	}

	op := "construct " + f.name
	defer recoverRuntime(op, &err)

	vm := g.Runtime()
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		if v, ok := a.(goja.Value); ok {
			vals[i] = v
			continue
		}
		vals[i] = vm.ToValue(a)
	}

	obj, err := f.ctor(f.value, vals...)
	if err != nil {
		return nil, runtimeError(op, err)
	}
	return newInstance(f.name, obj), nil
}
