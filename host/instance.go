package host

import (
	"github.com/dop251/goja"

	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
)

// Instance is a live script object plus its update hook, resolved once at
// construction. Holding an Instance keeps the object reachable for the
// script heap.
type Instance struct {
	name   string
	object *goja.Object
	update goja.Callable
}

// newInstance resolves the update hook. A missing or non-callable "update"
// property leaves the hook absent. Reading the property may run a getter,
// so callers defer recoverRuntime.
func newInstance(name string, obj *goja.Object) *Instance {
	inst := &Instance{name: name, object: obj}
	if fn, ok := goja.AssertFunction(obj.Get("update")); ok {
		inst.update = fn
	}
	return inst
}

// Instantiate evaluates a construction expression such as
// "new namespace1.file2()" against the global object and wraps the
// resulting object.
func Instantiate(g *Guard, expr string) (inst *Instance, err error) {
	if err := g.Check(); err != nil {
		return nil, err
	}

	prog, err := goja.Compile("instantiate", expr, false)
	if err != nil {
		return nil, &domainerrors.ScriptCompilationError{Name: expr, Err: err}
	}

	op := "instantiate " + expr
	defer recoverRuntime(op, &err)

	v, err := g.Runtime().RunProgram(prog)
	if err != nil {
		return nil, runtimeError(op, err)
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, &domainerrors.ScriptRuntimeError{Op: op, Value: "expression did not yield an object: " + v.String()}
	}
	return newInstance(expr, obj), nil
}

// Name returns the factory name or construction expression.
func (i *Instance) Name() string { return i.name }

// Object returns the script object.
func (i *Instance) Object() *goja.Object { return i.object }

// HasUpdate reports whether an update hook was found at construction.
func (i *Instance) HasUpdate() bool { return i.update != nil }

// Drive calls the update hook with no arguments and the instance as this.
// Without a hook it does nothing. An exception fails with
// *errors.ScriptRuntimeError.
func (i *Instance) Drive(g *Guard) (err error) {
	if err := g.Check(); err != nil {
		return err
	}
	if i.update == nil {
		return nil
	}

	op := "update " + i.name
	defer recoverRuntime(op, &err)

	if _, err := i.update(i.object); err != nil {
		return runtimeError(op, err)
	}
	return nil
}
