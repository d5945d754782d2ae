package bridge

import (
	"github.com/dop251/goja"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	"github.com/Tsuguri/embedded-js-tests/internal/arena"
)

// Binding is the Go side of one exposed value.
type Binding struct {
	object *goja.Object
	handle arena.Handle
	own    entities.Ownership
	arena  *arena.Arena
}

// Object returns the script object backed by the payload.
func (b *Binding) Object() *goja.Object { return b.object }

// Ownership returns the discipline the value was exposed under.
func (b *Binding) Ownership() entities.Ownership { return b.own }

// Live reports whether scripts can still reach the payload.
func (b *Binding) Live() bool {
	_, err := b.arena.Ownership(b.handle)
	return err == nil
}

// Revoke invalidates the handle. Later script access to the object throws
// *errors.NativeTypeMismatchError. An owned payload is released; a
// borrowed one is left to its Go owner. Revoking twice is a no-op.
func (b *Binding) Revoke() error {
	return b.arena.Release(b.handle)
}
