// Package arena stores native payloads exposed to scripts behind checked
// handles. Scripts never see an address: they hold a packed handle that is
// validated for liveness (generation), kind and ownership on every access.
package arena

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
)

var (
	// ErrStaleHandle is returned for a handle whose slot was released or reused.
	ErrStaleHandle = errors.New("stale native handle")

	// ErrKindMismatch is returned when a live handle belongs to another kind.
	ErrKindMismatch = errors.New("native handle kind mismatch")

	// ErrOwnershipConflict is returned when one payload is inserted under two
	// disciplines, or owned twice.
	ErrOwnershipConflict = errors.New("native payload ownership conflict")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("arena closed")
)

// genBits bounds the generation so a packed handle stays an exact integer
// in a float64 script number.
const (
	genBits = 21
	genMask = 1<<genBits - 1
)

// Handle identifies a slot. The zero Handle is never valid.
type Handle struct {
	Index uint32
	Gen   uint32
}

// Pack encodes h as a non-negative integer below 2^53.
func (h Handle) Pack() int64 {
	return int64(h.Index)<<genBits | int64(h.Gen&genMask)
}

// Unpack reverses Pack.
func Unpack(v int64) Handle {
	return Handle{Index: uint32(v >> genBits), Gen: uint32(v & genMask)} //nolint:gosec // G115: bounded by Pack
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.Index, h.Gen)
}

type slot struct {
	value any
	kind  string
	own   entities.Ownership
	gen   uint32
	live  bool
}

// Arena is a generational slot table. It is safe for concurrent use: the
// script goroutine looks handles up while Go GC cleanups may release them.
type Arena struct {
	mu     sync.Mutex
	slots  []slot
	free   []uint32
	owners map[any]entities.Ownership // pointer payloads -> discipline
	refs   map[any]int                // pointer payloads -> live slot count
	closed bool
}

// New creates an empty arena. Slot 0 is reserved so the zero Handle is invalid.
func New() *Arena {
	return &Arena{
		slots:  make([]slot, 1),
		owners: make(map[any]entities.Ownership),
		refs:   make(map[any]int),
	}
}

// Insert stores value under kind with the given ownership tag.
// A pointer payload may be exposed any number of times as Borrowed, but
// never both Borrowed and Owned, and never Owned twice.
func (a *Arena) Insert(kind string, value any, own entities.Ownership) (Handle, error) {
	if !own.Valid() {
		return Handle{}, fmt.Errorf("insert %s: %w: invalid ownership %v", kind, ErrOwnershipConflict, own)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Handle{}, ErrClosed
	}

	key, tracked := identity(value)
	if tracked {
		if prev, ok := a.owners[key]; ok && a.refs[key] > 0 {
			if prev != own || own == entities.Owned {
				return Handle{}, fmt.Errorf("insert %s as %s: %w: already exposed as %s", kind, own, ErrOwnershipConflict, prev)
			}
		}
	}

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		idx = uint32(len(a.slots) - 1) //nolint:gosec // G115: slot count bounded by memory
	}

	s := &a.slots[idx]
	s.gen = (s.gen + 1) & genMask
	if s.gen == 0 {
		s.gen = 1
	}
	s.value, s.kind, s.own, s.live = value, kind, own, true

	if tracked {
		a.owners[key] = own
		a.refs[key]++
	}
	return Handle{Index: idx, Gen: s.gen}, nil
}

// Lookup returns the payload behind h after checking liveness and kind.
func (a *Arena) Lookup(h Handle, kind string) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.slotLocked(h)
	if err != nil {
		return nil, err
	}
	if s.kind != kind {
		return nil, fmt.Errorf("%w: handle %s is a %s, want %s", ErrKindMismatch, h, s.kind, kind)
	}
	return s.value, nil
}

// Ownership returns the discipline recorded for a live handle.
func (a *Arena) Ownership(h Handle) (entities.Ownership, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.slotLocked(h)
	if err != nil {
		return 0, err
	}
	return s.own, nil
}

// Release invalidates h. Owned payloads implementing io.Closer are closed;
// borrowed payloads are left untouched. Releasing a stale handle is a no-op
// so that GC cleanups racing with explicit revocation stay harmless.
func (a *Arena) Release(h Handle) error {
	a.mu.Lock()
	s, err := a.slotLocked(h)
	if err != nil {
		a.mu.Unlock()
		if errors.Is(err, ErrStaleHandle) || errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
	value, own := s.value, s.own
	a.clearLocked(h.Index)
	a.mu.Unlock()

	if own == entities.Owned {
		return closePayload(value)
	}
	return nil
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, s := range a.slots {
		if s.live {
			n++
		}
	}
	return n
}

// Close invalidates every handle and closes every owned payload that
// implements io.Closer. It returns the joined close errors.
func (a *Arena) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true

	var owned []any
	for i := range a.slots {
		if a.slots[i].live && a.slots[i].own == entities.Owned {
			owned = append(owned, a.slots[i].value)
		}
		a.slots[i] = slot{gen: a.slots[i].gen}
	}
	a.free = nil
	a.owners = map[any]entities.Ownership{}
	a.refs = map[any]int{}
	a.mu.Unlock()

	var errs []error
	for _, v := range owned {
		if err := closePayload(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Arena) slotLocked(h Handle) (*slot, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if h.Index == 0 || int(h.Index) >= len(a.slots) {
		return nil, fmt.Errorf("%w: %s out of range", ErrStaleHandle, h)
	}
	s := &a.slots[h.Index]
	if !s.live || s.gen != h.Gen {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return s, nil
}

func (a *Arena) clearLocked(idx uint32) {
	s := &a.slots[idx]
	if key, tracked := identity(s.value); tracked {
		if a.refs[key]--; a.refs[key] <= 0 {
			delete(a.refs, key)
			delete(a.owners, key)
		}
	}
	s.value, s.kind, s.own, s.live = nil, "", 0, false
	a.free = append(a.free, idx)
}

// identity returns a comparable key for pointer-like payloads, which are the
// only ones that can alias between two exposures.
func identity(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return v, true
	default:
		return nil, false
	}
}

func closePayload(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
