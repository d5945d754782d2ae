package arena

import (
	"errors"
	"testing"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct {
	closed int
	err    error
}

func (c *closer) Close() error {
	c.closed++
	return c.err
}

func TestHandlePackRoundTrip(t *testing.T) {
	tests := []Handle{
		{Index: 1, Gen: 1},
		{Index: 42, Gen: genMask},
		{Index: 0xFFFFFFFF, Gen: 7},
	}
	for _, h := range tests {
		packed := h.Pack()
		assert.GreaterOrEqual(t, packed, int64(0))
		assert.Less(t, packed, int64(1)<<53, "must be exact in a float64")
		assert.Equal(t, h, Unpack(packed))
	}
}

func TestArena_InsertLookup(t *testing.T) {
	a := New()
	v := &struct{ X int }{X: 3}

	h, err := a.Insert("Vector", v, entities.Borrowed)
	require.NoError(t, err)
	assert.NotEqual(t, Handle{}, h)

	got, err := a.Lookup(h, "Vector")
	require.NoError(t, err)
	assert.Same(t, v, got)

	_, err = a.Lookup(h, "Matrix")
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, err = a.Lookup(Handle{}, "Vector")
	assert.ErrorIs(t, err, ErrStaleHandle)

	own, err := a.Ownership(h)
	require.NoError(t, err)
	assert.Equal(t, entities.Borrowed, own)
}

func TestArena_StaleAfterReuse(t *testing.T) {
	a := New()

	h1, err := a.Insert("k", 1, entities.Owned)
	require.NoError(t, err)
	require.NoError(t, a.Release(h1))

	h2, err := a.Insert("k", 2, entities.Owned)
	require.NoError(t, err)
	assert.Equal(t, h1.Index, h2.Index, "slot is reused")
	assert.NotEqual(t, h1.Gen, h2.Gen)

	_, err = a.Lookup(h1, "k")
	assert.ErrorIs(t, err, ErrStaleHandle)

	got, err := a.Lookup(h2, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestArena_OwnershipDiscipline(t *testing.T) {
	a := New()
	v := &closer{}

	_, err := a.Insert("c", v, 0)
	assert.ErrorIs(t, err, ErrOwnershipConflict)

	b1, err := a.Insert("c", v, entities.Borrowed)
	require.NoError(t, err)
	_, err = a.Insert("c", v, entities.Borrowed)
	require.NoError(t, err, "several borrowed views are allowed")

	_, err = a.Insert("c", v, entities.Owned)
	assert.ErrorIs(t, err, ErrOwnershipConflict)

	require.NoError(t, a.Release(b1))
	assert.Equal(t, 0, v.closed, "borrowed payloads are never closed")

	other := &closer{}
	_, err = a.Insert("c", other, entities.Owned)
	require.NoError(t, err)
	_, err = a.Insert("c", other, entities.Owned)
	assert.ErrorIs(t, err, ErrOwnershipConflict, "owning twice would double free")
}

func TestArena_ReleaseClosesOwned(t *testing.T) {
	a := New()
	v := &closer{}

	h, err := a.Insert("c", v, entities.Owned)
	require.NoError(t, err)
	require.NoError(t, a.Release(h))
	assert.Equal(t, 1, v.closed)

	require.NoError(t, a.Release(h), "second release is a no-op")
	assert.Equal(t, 1, v.closed)
	assert.Equal(t, 0, a.Len())
}

func TestArena_Close(t *testing.T) {
	a := New()
	owned := &closer{err: errors.New("flush failed")}
	borrowed := &closer{}

	ho, err := a.Insert("c", owned, entities.Owned)
	require.NoError(t, err)
	_, err = a.Insert("c", borrowed, entities.Borrowed)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Len())

	err = a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
	assert.Equal(t, 1, owned.closed)
	assert.Equal(t, 0, borrowed.closed)

	_, err = a.Lookup(ho, "c")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = a.Insert("c", 1, entities.Owned)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, a.Release(ho))
	assert.NoError(t, a.Close(), "close is idempotent")
}
