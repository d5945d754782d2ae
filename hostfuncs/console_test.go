package hostfuncs

import (
	"context"
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsuguri/embedded-js-tests/internal/testutil"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func installed(t *testing.T, opts ...RegistryOption) *goja.Runtime {
	t.Helper()
	reg, err := NewRegistry(opts...)
	require.NoError(t, err)
	vm := goja.New()
	require.NoError(t, reg.Install(context.Background(), vm, vm.GlobalObject()))
	return vm
}

func TestConsoleLog_OneLinePerCall(t *testing.T) {
	out := NewBoundedBuffer(0)
	vm := installed(t, WithBundle(ConsoleBundle(out)))

	v, err := vm.RunString(`
		console.log("constructed");
		console.log(1, "two", true, null, undefined, [3, 4], {});
		console.log();
	`)
	require.NoError(t, err)
	assert.True(t, goja.IsUndefined(v))

	testutil.AssertLines(t, []string{
		"constructed",
		"1 two true null undefined 3,4 [object Object]",
		"",
	}, out.String())
}

func TestConsoleLog_NeverThrows(t *testing.T) {
	out := NewBoundedBuffer(0)
	vm := installed(t, WithBundle(ConsoleBundle(out)))

	_, err := vm.RunString(`console.log("a", { toString() { throw new Error("nope") } }, "b")`)
	require.NoError(t, err)
	testutil.AssertLines(t, []string{"a [unprintable] b"}, out.String())

	vm = installed(t, WithBundle(ConsoleBundle(failingWriter{})))
	_, err = vm.RunString(`console.log("lost")`)
	assert.NoError(t, err)
}

func TestBoundedBuffer(t *testing.T) {
	buf := NewBoundedBuffer(10)

	n, err := buf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, buf.Truncated())

	n, err = buf.Write([]byte(" world!"))
	require.NoError(t, err)
	assert.Equal(t, 7, n, "reports full length to avoid short writes")
	assert.Equal(t, "hello worl", buf.String())
	assert.True(t, buf.Truncated())

	n, err = buf.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 10, buf.Len())

	buf.Reset()
	assert.Equal(t, 0, buf.Len())
	assert.False(t, buf.Truncated())
	assert.Equal(t, DefaultMaxOutputSize, NewBoundedBuffer(-1).limit)
}
