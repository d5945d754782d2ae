package host

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
)

// Namespace is a node of the owned namespace graph. The Go tree is the
// source of truth; each node mirrors its entries as non-writable,
// non-configurable properties of a script object (the global object for the
// engine root).
type Namespace struct {
	name    string
	path    string
	origin  string
	object  *goja.Object
	entries map[string]nsEntry
	order   []string
}

type nsEntry struct {
	ns      *Namespace
	factory *Factory
}

func (e nsEntry) origin() string {
	if e.ns != nil {
		return e.ns.origin
	}
	return e.factory.origin
}

func (e nsEntry) value() goja.Value {
	if e.ns != nil {
		return e.ns.object
	}
	return e.factory.value
}

func newNamespace(name, path, origin string, obj *goja.Object) *Namespace {
	return &Namespace{
		name:    name,
		path:    path,
		origin:  origin,
		object:  obj,
		entries: make(map[string]nsEntry),
	}
}

// NewNamespace creates an empty, detached namespace backed by a fresh plain
// object. It can serve as an alternative load root.
func NewNamespace(g *Guard) (*Namespace, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	return newNamespace("", "", "", g.Runtime().NewObject()), nil
}

// Name returns the entry name under the parent ("" for a root).
func (n *Namespace) Name() string { return n.name }

// Path returns the dotted path from the root ("" for a root).
func (n *Namespace) Path() string { return n.path }

// Object returns the mirrored script object.
func (n *Namespace) Object() *goja.Object { return n.object }

// Names returns entry names in attachment order.
func (n *Namespace) Names() []string {
	return append([]string(nil), n.order...)
}

// Namespace returns the child namespace called name.
func (n *Namespace) Namespace(name string) (*Namespace, bool) {
	e, ok := n.entries[name]
	if !ok || e.ns == nil {
		return nil, false
	}
	return e.ns, true
}

// Factory returns the factory called name.
func (n *Namespace) Factory(name string) (*Factory, bool) {
	e, ok := n.entries[name]
	if !ok || e.factory == nil {
		return nil, false
	}
	return e.factory, true
}

// Lookup resolves a dotted path ("ns.inner.file") to a factory.
func (n *Namespace) Lookup(path string) (*Factory, bool) {
	parts := strings.Split(path, ".")
	cur := n
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur.Namespace(part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur.Factory(parts[len(parts)-1])
}

// AddFactory attaches f under name. Name collisions with existing entries or
// own properties of the mirrored object fail with
// *errors.DuplicateNamespaceEntryError.
func (n *Namespace) AddFactory(g *Guard, name string, f *Factory) error {
	if err := g.Check(); err != nil {
		return err
	}
	return n.attach(g, name, nsEntry{factory: f})
}

// Tree returns a detached snapshot of the graph below n.
func (n *Namespace) Tree() entities.NamespaceTree {
	t := entities.NamespaceTree{Name: n.name, Kind: entities.KindNamespace, Origin: n.origin}
	for _, name := range n.order {
		e := n.entries[name]
		if e.ns != nil {
			t.Children = append(t.Children, e.ns.Tree())
			continue
		}
		t.Children = append(t.Children, entities.NamespaceTree{
			Name:   name,
			Kind:   entities.KindFactory,
			Origin: e.factory.origin,
		})
	}
	return t
}

func (n *Namespace) childPath(name string) string {
	if n.path == "" {
		return name
	}
	return n.path + "." + name
}

func (n *Namespace) attach(g *Guard, name string, e nsEntry) error {
	if existing, ok := n.entries[name]; ok {
		return &domainerrors.DuplicateNamespaceEntryError{
			Namespace: n.path,
			Name:      name,
			Path:      e.origin(),
			Existing:  existing.origin(),
		}
	}

	vm := g.Runtime()
	own, err := g.engine.cx.hasOwnProperty(vm, n.object, name)
	if err != nil {
		return runtimeError("attach "+n.childPath(name), err)
	}
	if own {
		return &domainerrors.DuplicateNamespaceEntryError{
			Namespace: n.path,
			Name:      name,
			Path:      e.origin(),
			Existing:  "existing property",
		}
	}

	if err := n.object.DefineDataProperty(name, e.value(), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return runtimeError("attach "+n.childPath(name), err)
	}
	n.entries[name] = e
	n.order = append(n.order, name)
	return nil
}

// detach drops Go references to script values so a closed context can be
// collected.
func (n *Namespace) detach() {
	for _, e := range n.entries {
		if e.ns != nil {
			e.ns.detach()
		}
	}
	n.entries = map[string]nsEntry{}
	n.order = nil
	n.object = nil
}
