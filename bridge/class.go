package bridge

import (
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	"github.com/Tsuguri/embedded-js-tests/host"
	"github.com/Tsuguri/embedded-js-tests/internal/arena"
)

// ConstructorFunc creates the payload of an instance constructed by a
// script with `new`.
type ConstructorFunc[T any] func(call Call[T]) (T, error)

// MethodFunc implements a prototype method. A nil result is undefined.
type MethodFunc[T any] func(self T, call Call[T]) (goja.Value, error)

// GetterFunc reads an accessor property from the live payload.
type GetterFunc[T any] func(self T, call Call[T]) (goja.Value, error)

// SetterFunc writes an accessor property through to the live payload.
type SetterFunc[T any] func(self T, value goja.Value, call Call[T]) error

// FieldFunc computes a data property copied onto each instance when it is
// created. Later payload changes are not reflected.
type FieldFunc[T any] func(self T) any

type memberKind int

const (
	methodMember memberKind = iota
	accessorMember
	fieldMember
)

type member[T any] struct {
	name   string
	kind   memberKind
	method MethodFunc[T]
	get    GetterFunc[T]
	set    SetterFunc[T]
	field  FieldFunc[T]
}

var classSeq atomic.Uint64

// ClassBuilder declares a native class. Declaration errors are collected
// and reported by Build.
type ClassBuilder[T any] struct {
	name    string
	ctor    ConstructorFunc[T]
	members []member[T]
	seen    map[string]bool
	err     error
}

// NewClass starts the declaration of a class called name.
func NewClass[T any](name string) *ClassBuilder[T] {
	b := &ClassBuilder[T]{name: name, seen: make(map[string]bool)}
	if name == "" {
		b.err = fmt.Errorf("class name cannot be empty")
	}
	return b
}

// Constructor makes the class constructible from scripts. Without a
// constructor, instances can only be created with Class.Expose and `new`
// throws a TypeError.
func (b *ClassBuilder[T]) Constructor(fn ConstructorFunc[T]) *ClassBuilder[T] {
	if fn == nil {
		b.fail(fmt.Errorf("class %s: constructor is nil", b.name))
		return b
	}
	b.ctor = fn
	return b
}

// Method adds a prototype method.
func (b *ClassBuilder[T]) Method(name string, fn MethodFunc[T]) *ClassBuilder[T] {
	if fn == nil {
		b.fail(fmt.Errorf("class %s: method %q is nil", b.name, name))
		return b
	}
	b.add(member[T]{name: name, kind: methodMember, method: fn})
	return b
}

// Accessor adds a prototype accessor property. A nil setter makes the
// property read-only.
func (b *ClassBuilder[T]) Accessor(name string, get GetterFunc[T], set SetterFunc[T]) *ClassBuilder[T] {
	if get == nil {
		b.fail(fmt.Errorf("class %s: accessor %q has no getter", b.name, name))
		return b
	}
	b.add(member[T]{name: name, kind: accessorMember, get: get, set: set})
	return b
}

// Field adds a data property set once on every new instance.
func (b *ClassBuilder[T]) Field(name string, fn FieldFunc[T]) *ClassBuilder[T] {
	if fn == nil {
		b.fail(fmt.Errorf("class %s: field %q is nil", b.name, name))
		return b
	}
	b.add(member[T]{name: name, kind: fieldMember, field: fn})
	return b
}

func (b *ClassBuilder[T]) add(m member[T]) {
	switch {
	case m.name == "":
		b.fail(fmt.Errorf("class %s: member name cannot be empty", b.name))
	case m.name == "constructor":
		b.fail(fmt.Errorf("class %s: member name %q is reserved", b.name, m.name))
	case b.seen[m.name]:
		b.fail(fmt.Errorf("class %s: duplicate member %q", b.name, m.name))
	default:
		b.seen[m.name] = true
		b.members = append(b.members, m)
	}
}

func (b *ClassBuilder[T]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build creates the class in the guard's engine. The returned Class is only
// valid in that engine.
func (b *ClassBuilder[T]) Build(g *host.Guard) (*Class[T], error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}

	vm := g.Runtime()
	c := &Class[T]{
		name:   b.name,
		kind:   b.name + "#" + strconv.FormatUint(classSeq.Add(1), 10),
		vm:     vm,
		arena:  g.Arena(),
		handle: goja.NewSymbol(b.name + ".handle"),
		newFn:  b.ctor,
	}

	hasOwn, ok := goja.AssertFunction(vm.Get("Object").ToObject(vm).Get("prototype").ToObject(vm).Get("hasOwnProperty"))
	if !ok {
		return nil, fmt.Errorf("class %s: Object.prototype.hasOwnProperty is not a function", b.name)
	}
	c.hasOwn = hasOwn

	c.ctor = vm.ToValue(c.construct).(*goja.Object)
	if err := setName(vm, c.ctor, b.name); err != nil {
		return nil, fmt.Errorf("class %s: %w", b.name, err)
	}
	proto, ok := c.ctor.Get("prototype").(*goja.Object)
	if !ok {
		proto = vm.NewObject()
		if err := proto.DefineDataProperty("constructor", c.ctor, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
			return nil, fmt.Errorf("class %s: %w", b.name, err)
		}
		if err := c.ctor.DefineDataProperty("prototype", proto, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
			return nil, fmt.Errorf("class %s: %w", b.name, err)
		}
	}
	c.proto = proto

	for _, m := range b.members {
		var err error
		switch m.kind {
		case methodMember:
			err = c.defineMethod(m)
		case accessorMember:
			err = c.defineAccessor(m)
		case fieldMember:
			c.fields = append(c.fields, m)
		}
		if err != nil {
			return nil, fmt.Errorf("class %s: member %s: %w", b.name, m.name, err)
		}
	}

	g.Logger().Debug("native class built", "class", b.name, "members", len(b.members), "constructible", b.ctor != nil)
	return c, nil
}

// Class is a native class bound to one engine.
type Class[T any] struct {
	name   string
	kind   string
	vm     *goja.Runtime
	arena  *arena.Arena
	handle *goja.Symbol
	hasOwn goja.Callable
	newFn  ConstructorFunc[T]
	ctor   *goja.Object
	proto  *goja.Object
	fields []member[T]
}

// Name returns the class name.
func (c *Class[T]) Name() string { return c.name }

// Constructor returns the script constructor.
func (c *Class[T]) Constructor() *goja.Object { return c.ctor }

// Prototype returns the prototype holding methods and accessors.
func (c *Class[T]) Prototype() *goja.Object { return c.proto }

// Expose wraps v in a new instance of the class under the given ownership.
// Exposing one pointer both Borrowed and Owned, or Owned twice, fails with
// arena.ErrOwnershipConflict.
func (c *Class[T]) Expose(g *host.Guard, v T, own entities.Ownership) (*Binding, error) {
	if err := c.check(g); err != nil {
		return nil, err
	}
	return c.bind(c.vm.CreateObject(c.proto), v, own)
}

// Unwrap returns the payload behind v, which must be a live instance of the
// class or of a script class extending it.
func (c *Class[T]) Unwrap(g *host.Guard, v goja.Value) (T, error) {
	if err := c.check(g); err != nil {
		var zero T
		return zero, err
	}
	return c.unwrap(v, "unwrap")
}

// Install attaches the constructor as a factory named after the class to
// ns, or to the engine root namespace when ns is nil.
func (c *Class[T]) Install(g *host.Guard, ns *host.Namespace) (*host.Factory, error) {
	if err := c.check(g); err != nil {
		return nil, err
	}
	if ns == nil {
		ns = g.Root()
	}
	f, err := host.NewFactory(g, c.name, "native:"+c.name, c.ctor)
	if err != nil {
		return nil, err
	}
	if err := ns.AddFactory(g, c.name, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (c *Class[T]) check(g *host.Guard) error {
	if err := g.Check(); err != nil {
		return err
	}
	if g.Runtime() != c.vm {
		return fmt.Errorf("class %s belongs to another engine", c.name)
	}
	return nil
}

func (c *Class[T]) construct(cc goja.ConstructorCall) *goja.Object {
	// A plain call with an object receiver reaches here with that receiver
	// as This. Only a fresh object built from the class prototype is valid.
	if !c.fresh(cc.This) {
		panic(c.vm.NewTypeError("Class constructor %s cannot be invoked without 'new'", c.name))
	}
	if c.newFn == nil {
		panic(c.vm.NewTypeError("Illegal constructor: %s instances are created by the host", c.name))
	}

	// super() from a derived script class passes the derived constructor.
	if cc.NewTarget != nil {
		if proto, ok := cc.NewTarget.Get("prototype").(*goja.Object); ok && !proto.SameAs(cc.This.Prototype()) {
			if err := cc.This.SetPrototype(proto); err != nil {
				throw(c.vm, err)
			}
		}
	}

	v, err := c.newFn(c.call(goja.FunctionCall{This: cc.This, Arguments: cc.Arguments}, "constructor"))
	if err != nil {
		throw(c.vm, err)
	}
	if _, err := c.bind(cc.This, v, entities.Owned); err != nil {
		throw(c.vm, err)
	}
	return nil
}

// fresh reports whether obj inherits from the class prototype and does not
// carry a handle yet.
func (c *Class[T]) fresh(obj *goja.Object) bool {
	if obj == nil || c.ownHandle(obj) != nil {
		return false
	}
	for p := obj.Prototype(); p != nil; p = p.Prototype() {
		if p.SameAs(c.proto) {
			return true
		}
	}
	return false
}

// ownHandle returns the handle stored on obj itself. Handles inherited
// through the prototype chain do not count.
func (c *Class[T]) ownHandle(obj *goja.Object) goja.Value {
	own, err := c.hasOwn(obj, c.handle)
	if err != nil || !own.ToBoolean() {
		return nil
	}
	return obj.GetSymbol(c.handle)
}

func (c *Class[T]) bind(obj *goja.Object, v T, own entities.Ownership) (*Binding, error) {
	h, err := c.arena.Insert(c.kind, v, own)
	if err != nil {
		return nil, fmt.Errorf("expose %s: %w", c.name, err)
	}
	if err := obj.DefineDataPropertySymbol(c.handle, c.vm.ToValue(h.Pack()), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
		_ = c.arena.Release(h)
		return nil, fmt.Errorf("expose %s: %w", c.name, err)
	}

	for _, f := range c.fields {
		if err := obj.Set(f.name, c.vm.ToValue(f.field(v))); err != nil {
			_ = c.arena.Release(h)
			return nil, fmt.Errorf("expose %s: field %s: %w", c.name, f.name, err)
		}
	}

	if own == entities.Owned {
		a := c.arena
		runtime.AddCleanup(obj, func(h arena.Handle) { _ = a.Release(h) }, h)
	}
	return &Binding{object: obj, handle: h, own: own, arena: c.arena}, nil
}

func (c *Class[T]) unwrap(v goja.Value, property string) (T, error) {
	var zero T

	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return zero, mismatch(c.name, property, describe(v), nil)
	}
	hv := c.ownHandle(obj)
	if hv == nil {
		return zero, mismatch(c.name, property, "object without a "+c.name+" handle", nil)
	}
	packed, ok := hv.Export().(int64)
	if !ok {
		return zero, mismatch(c.name, property, "object without a "+c.name+" handle", nil)
	}
	h := arena.Unpack(packed)
	payload, err := c.arena.Lookup(h, c.kind)
	if err != nil {
		return zero, mismatch(c.name, property, "handle "+h.String(), err)
	}
	self, ok := payload.(T)
	if !ok {
		return zero, mismatch(c.name, property, fmt.Sprintf("%T", payload), nil)
	}
	return self, nil
}

// receiver resolves this or throws.
func (c *Class[T]) receiver(this goja.Value, property string) T {
	self, err := c.unwrap(this, property)
	if err != nil {
		throw(c.vm, err)
	}
	return self
}

func (c *Class[T]) call(fc goja.FunctionCall, property string) Call[T] {
	return Call[T]{FunctionCall: fc, Runtime: c.vm, class: c, property: property}
}

func (c *Class[T]) defineMethod(m member[T]) error {
	fn := c.vm.ToValue(func(fc goja.FunctionCall) goja.Value {
		self := c.receiver(fc.This, m.name)
		res, err := m.method(self, c.call(fc, m.name))
		if err != nil {
			throw(c.vm, err)
		}
		if res == nil {
			return goja.Undefined()
		}
		return res
	}).(*goja.Object)
	if err := setName(c.vm, fn, m.name); err != nil {
		return err
	}
	return c.proto.DefineDataProperty(m.name, fn, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE)
}

func (c *Class[T]) defineAccessor(m member[T]) error {
	getter := c.vm.ToValue(func(fc goja.FunctionCall) goja.Value {
		self := c.receiver(fc.This, m.name)
		res, err := m.get(self, c.call(fc, m.name))
		if err != nil {
			throw(c.vm, err)
		}
		if res == nil {
			return goja.Undefined()
		}
		return res
	})

	var setter goja.Value
	if m.set != nil {
		setter = c.vm.ToValue(func(fc goja.FunctionCall) goja.Value {
			self := c.receiver(fc.This, m.name)
			if err := m.set(self, fc.Argument(0), c.call(fc, m.name)); err != nil {
				throw(c.vm, err)
			}
			return goja.Undefined()
		})
	}
	return c.proto.DefineAccessorProperty(m.name, getter, setter, goja.FLAG_TRUE, goja.FLAG_FALSE)
}

func setName(vm *goja.Runtime, fn *goja.Object, name string) error {
	return fn.DefineDataProperty("name", vm.ToValue(name), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
}

func describe(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	default:
		return "primitive " + v.ExportType().String()
	}
}
