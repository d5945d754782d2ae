package host

import (
	"log/slog"

	"github.com/dop251/goja"

	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/internal/arena"
)

// Guard proves that the holder has entered the engine's context. It is not
// safe for concurrent use and must be released by the goroutine that
// obtained it. Every operation on a released guard fails with
// *errors.ContextEntryError.
type Guard struct {
	engine   *Engine
	released bool
}

// Release leaves the context. Releasing twice is a no-op.
func (g *Guard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.engine.mu.Unlock()
}

// Check returns a *errors.ContextEntryError if the guard was released.
func (g *Guard) Check() error {
	if g == nil {
		return &domainerrors.ContextEntryError{Reason: "nil guard"}
	}
	if g.released {
		return &domainerrors.ContextEntryError{Reason: "guard already released"}
	}
	return nil
}

// Engine returns the engine the guard belongs to.
func (g *Guard) Engine() *Engine { return g.engine }

// Runtime returns the goja runtime. The value must not escape the guarded
// call.
func (g *Guard) Runtime() *goja.Runtime { return g.engine.rt.vm }

// Global returns the global object of the context.
func (g *Guard) Global() *goja.Object { return g.engine.cx.global }

// Root returns the root namespace, mirrored into the global object.
func (g *Guard) Root() *Namespace { return g.engine.cx.root }

// Arena returns the handle arena backing native objects of this context.
func (g *Guard) Arena() *arena.Arena { return g.engine.cx.arena }

// Logger returns the engine logger.
func (g *Guard) Logger() *slog.Logger { return g.engine.config.logger }

// Evaluate compiles and runs src as a standalone script and returns its
// completion value.
func (g *Guard) Evaluate(name, src string) (v goja.Value, err error) {
	if err := g.Check(); err != nil {
		return nil, err
	}

	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, &domainerrors.ScriptCompilationError{Name: name, Err: err}
	}

	defer recoverRuntime("evaluate "+name, &err)
	v, err = g.Runtime().RunProgram(prog)
	if err != nil {
		return nil, runtimeError("evaluate "+name, err)
	}
	return v, nil
}
