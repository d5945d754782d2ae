package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	"github.com/Tsuguri/embedded-js-tests/hostfuncs"
	"github.com/Tsuguri/embedded-js-tests/internal/arena"
)

// EngineName identifies the script engine in reports.
const EngineName = "goja"

var errEngineClosed = errors.New("engine closed")

// Engine owns a script runtime and the single context bound to it.
//
// Teardown happens in two layers: the context layer (native handles, the
// namespace graph, require state) is always released before the runtime
// layer (the goja runtime and registered runtime resources).
type Engine struct {
	config engineConfig
	mu     sync.Mutex // held by the live Guard
	rt     *runtimeLayer
	cx     *contextLayer
	closed bool
}

// runtimeLayer is the allocator side: the goja runtime plus resources that
// must outlive everything created inside the context.
type runtimeLayer struct {
	vm        *goja.Runtime
	resources []io.Closer
}

// contextLayer is the global environment bound to the runtime.
type contextLayer struct {
	global  *goja.Object
	arena   *arena.Arena
	root    *Namespace
	hasOwn  goja.Callable
	require *require.RequireModule
}

// NewEngine creates the runtime, then the context. Any failure is reported
// as an *errors.EngineInitError naming the stage; a runtime created before a
// context failure is released again.
func NewEngine(opts ...Option) (e *Engine, err error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	stage := "runtime"
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, &domainerrors.EngineInitError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	rt, err := newRuntimeLayer(cfg)
	if err != nil {
		return nil, &domainerrors.EngineInitError{Stage: stage, Err: err}
	}

	stage = "context"
	cx, err := newContextLayer(cfg, rt.vm)
	if err != nil {
		closeErr := rt.close()
		return nil, &domainerrors.EngineInitError{Stage: stage, Err: errors.Join(err, closeErr)}
	}

	cfg.logger.Debug("engine created", "engine", EngineName, "require", cfg.requireEnabled)
	return &Engine{config: cfg, rt: rt, cx: cx}, nil
}

func newRuntimeLayer(cfg engineConfig) (*runtimeLayer, error) {
	if cfg.maxCallStack < 0 {
		return nil, fmt.Errorf("invalid max call stack size %d", cfg.maxCallStack)
	}
	if !cfg.strategy.Valid() {
		return nil, fmt.Errorf("unknown export strategy %q", cfg.strategy)
	}

	vm := goja.New()
	if cfg.maxCallStack > 0 {
		vm.SetMaxCallStackSize(cfg.maxCallStack)
	}

	return &runtimeLayer{vm: vm, resources: cfg.resources}, nil
}

func newContextLayer(cfg engineConfig, vm *goja.Runtime) (*contextLayer, error) {
	global := vm.GlobalObject()

	hasOwn, err := objectPrototypeFunc(vm, "hasOwnProperty")
	if err != nil {
		return nil, err
	}

	registry := cfg.registry
	if registry == nil {
		registry, err = hostfuncs.NewRegistry(
			hostfuncs.WithMiddleware(
				hostfuncs.PanicRecoveryMiddleware(),
				hostfuncs.LoggingMiddleware(cfg.logger),
			),
			hostfuncs.WithBundle(hostfuncs.ConsoleBundle(cfg.output)),
			hostfuncs.WithBundle(hostfuncs.TimerBundle(hostfuncs.WithTimerLogger(cfg.logger))),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
	}
	if err := registry.Install(context.Background(), vm, global); err != nil {
		return nil, fmt.Errorf("failed to install host functions: %w", err)
	}

	cx := &contextLayer{
		global: global,
		arena:  arena.New(),
		hasOwn: hasOwn,
	}
	cx.root = newNamespace("", "", "", global)

	if cfg.requireEnabled {
		reg := require.NewRegistry(require.WithGlobalFolders(cfg.requireFolders...))
		for name, loader := range cfg.nativeModules {
			reg.RegisterNativeModule(name, loader)
		}
		cx.require = reg.Enable(vm)
	}
	return cx, nil
}

func objectPrototypeFunc(vm *goja.Runtime, name string) (goja.Callable, error) {
	ctor, ok := vm.Get("Object").(*goja.Object)
	if !ok {
		return nil, errors.New("global Object missing")
	}
	proto, ok := ctor.Get("prototype").(*goja.Object)
	if !ok {
		return nil, errors.New("Object.prototype missing")
	}
	fn, ok := goja.AssertFunction(proto.Get(name))
	if !ok {
		return nil, fmt.Errorf("Object.prototype.%s is not a function", name)
	}
	return fn, nil
}

// Enter makes the context current for the caller and returns a Guard.
// It fails with *errors.ContextEntryError when the engine is closed or the
// context is already entered; entry never blocks.
func (e *Engine) Enter() (*Guard, error) {
	if !e.mu.TryLock() {
		return nil, &domainerrors.ContextEntryError{Reason: "context is already entered"}
	}
	if e.closed {
		e.mu.Unlock()
		return nil, &domainerrors.ContextEntryError{Reason: "engine is closed", Err: errEngineClosed}
	}
	return &Guard{engine: e}, nil
}

// Run enters the context, calls fn and releases the guard however fn
// returns, including by panic.
func (e *Engine) Run(fn func(g *Guard) error) error {
	g, err := e.Enter()
	if err != nil {
		return err
	}
	defer g.Release()
	return fn(g)
}

// LoadAll loads the script tree at dir into the root namespace.
func (e *Engine) LoadAll(dir string, opts ...LoaderOption) (report *entities.LoadReport, err error) {
	err = e.Run(func(g *Guard) error {
		report, err = NewLoader(opts...).LoadDir(g, g.Root(), dir)
		return err
	})
	return report, err
}

// Close tears the context down, then the runtime. The runtime layer is
// closed even if the context teardown fails or panics. Close fails with
// *errors.ContextEntryError while a guard is held; closing twice is a no-op.
func (e *Engine) Close() (err error) {
	if !e.mu.TryLock() {
		return &domainerrors.ContextEntryError{Reason: "cannot close while the context is entered"}
	}
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	defer func() {
		err = errors.Join(err, e.rt.close())
		e.config.logger.Debug("engine closed", "error", err)
	}()
	return e.cx.close()
}

func (cx *contextLayer) close() error {
	err := cx.arena.Close()
	cx.root.detach()
	cx.require = nil
	cx.global = nil
	if err != nil {
		return fmt.Errorf("context teardown: %w", err)
	}
	return nil
}

func (rt *runtimeLayer) close() error {
	rt.vm.Interrupt(errEngineClosed)
	rt.vm = nil

	var errs []error
	for i := len(rt.resources) - 1; i >= 0; i-- {
		if err := rt.resources[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("runtime teardown: %w", err)
	}
	return nil
}

// hasOwnProperty reports whether obj has an own property name, using the
// Object.prototype.hasOwnProperty captured at engine creation.
func (cx *contextLayer) hasOwnProperty(vm *goja.Runtime, obj *goja.Object, name string) (bool, error) {
	res, err := cx.hasOwn(obj, vm.ToValue(name))
	if err != nil {
		return false, err
	}
	return res.ToBoolean(), nil
}
