package wazero_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/host"
	"github.com/Tsuguri/embedded-js-tests/infrastructure/wazero"
	"github.com/Tsuguri/embedded-js-tests/internal/testutil"
	hostlog "github.com/Tsuguri/embedded-js-tests/log"
)

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func module(sections ...[]byte) []byte {
	out := append([]byte(nil), header...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// adderWasm exports add(i32, i32) i32.
var adderWasm = module(
	[]byte{0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f},
	[]byte{0x03, 0x02, 0x01, 0x00},
	[]byte{0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00},
	[]byte{0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b},
)

// mathWasm exports fadd(f64, f64) f64 and imul(i64, i64) i64.
var mathWasm = module(
	[]byte{0x01, 0x0d, 0x02, 0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c, 0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e},
	[]byte{0x03, 0x03, 0x02, 0x00, 0x01},
	[]byte{0x07, 0x0f, 0x02, 0x04, 'f', 'a', 'd', 'd', 0x00, 0x00, 0x04, 'i', 'm', 'u', 'l', 0x00, 0x01},
	[]byte{0x0a, 0x11, 0x02,
		0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0xa0, 0x0b,
		0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7e, 0x0b},
)

// helloWasm imports embjs_host.print(i64), exports one page of memory
// holding "hi" at offset 0 and hello() printing it.
var helloWasm = module(
	[]byte{0x01, 0x08, 0x02, 0x60, 0x01, 0x7e, 0x00, 0x60, 0x00, 0x00},
	[]byte{0x02, 0x14, 0x01,
		0x0a, 'e', 'm', 'b', 'j', 's', '_', 'h', 'o', 's', 't',
		0x05, 'p', 'r', 'i', 'n', 't', 0x00, 0x00},
	[]byte{0x03, 0x02, 0x01, 0x01},
	[]byte{0x05, 0x03, 0x01, 0x00, 0x01},
	[]byte{0x07, 0x12, 0x02,
		0x05, 'h', 'e', 'l', 'l', 'o', 0x00, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00},
	[]byte{0x0a, 0x08, 0x01, 0x06, 0x00, 0x42, 0x02, 0x10, 0x00, 0x0b},
	[]byte{0x0b, 0x08, 0x01, 0x00, 0x41, 0x00, 0x0b, 0x02, 'h', 'i'},
)

// muteWasm is helloWasm without memory: hello() prints from a module that
// has nothing to read from.
var muteWasm = module(
	[]byte{0x01, 0x08, 0x02, 0x60, 0x01, 0x7e, 0x00, 0x60, 0x00, 0x00},
	[]byte{0x02, 0x14, 0x01,
		0x0a, 'e', 'm', 'b', 'j', 's', '_', 'h', 'o', 's', 't',
		0x05, 'p', 'r', 'i', 'n', 't', 0x00, 0x00},
	[]byte{0x03, 0x02, 0x01, 0x01},
	[]byte{0x07, 0x09, 0x01, 0x05, 'h', 'e', 'l', 'l', 'o', 0x00, 0x01},
	[]byte{0x0a, 0x08, 0x01, 0x06, 0x00, 0x42, 0x02, 0x10, 0x00, 0x0b},
)

func setup(t *testing.T) (*host.Engine, *wazero.Compiler, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	c, err := wazero.NewCompiler(context.Background(), wazero.WithOutput(out))
	require.NoError(t, err)

	e, err := host.NewEngine(host.WithConsoleOutput(out), host.WithRuntimeResource(c))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, c, out
}

func TestCompileAndCall(t *testing.T) {
	e, c, _ := setup(t)

	err := e.Run(func(g *host.Guard) error {
		f, err := c.CompileModule(g, "adder", "adder.wasm", adderWasm)
		require.NoError(t, err)
		assert.Equal(t, "adder.wasm", f.Origin())

		inst, err := f.New(g)
		require.NoError(t, err)
		require.NoError(t, g.Global().Set("a", inst.Object()))

		v, err := g.Evaluate("call", `a.add(2, 3)`)
		require.NoError(t, err)
		assert.Equal(t, int64(5), v.ToInteger())

		v, err = g.Evaluate("wrap", `a.add(2147483647, 1)`)
		require.NoError(t, err)
		assert.Equal(t, int64(-2147483648), v.ToInteger())

		v, err = g.Evaluate("fields", `a.module + ":" + a.memoryBytes`)
		require.NoError(t, err)
		assert.Equal(t, "adder.wasm:0", v.String())
		return nil
	})
	require.NoError(t, err)
}

func TestNumericConversions(t *testing.T) {
	e, c, _ := setup(t)

	err := e.Run(func(g *host.Guard) error {
		f, err := c.CompileModule(g, "m", "m.wasm", mathWasm)
		require.NoError(t, err)
		inst, err := f.New(g)
		require.NoError(t, err)
		require.NoError(t, g.Global().Set("m", inst.Object()))

		v, err := g.Evaluate("fadd", `m.fadd(1.5, 2.25)`)
		require.NoError(t, err)
		assert.InDelta(t, 3.75, v.ToFloat(), 1e-9)

		v, err = g.Evaluate("imul", `m.imul(6, 7)`)
		require.NoError(t, err)
		assert.Equal(t, int64(42), v.ToInteger())
		return nil
	})
	require.NoError(t, err)
}

func TestHostImportsAndMemory(t *testing.T) {
	e, c, out := setup(t)

	err := e.Run(func(g *host.Guard) error {
		f, err := c.CompileModule(g, "hello", "hello.wasm", helloWasm)
		require.NoError(t, err)
		require.NoError(t, g.Root().AddFactory(g, "hello", f))

		v, err := g.Evaluate("hello", `var h = new hello(); h.hello(); h.memoryBytes`)
		require.NoError(t, err)
		assert.Equal(t, int64(65536), v.ToInteger())
		return nil
	})
	require.NoError(t, err)
	testutil.AssertLines(t, []string{"hi"}, out.String())
}

func TestInstancesAreIndependent(t *testing.T) {
	e, c, _ := setup(t)

	err := e.Run(func(g *host.Guard) error {
		f, err := c.CompileModule(g, "adder", "adder.wasm", adderWasm)
		require.NoError(t, err)
		require.NoError(t, g.Root().AddFactory(g, "adder", f))

		v, err := g.Evaluate("two", `var x = new adder(), y = new adder(); x !== y && x.add(1, 1) === y.add(1, 1)`)
		require.NoError(t, err)
		assert.True(t, v.ToBoolean())
		return nil
	})
	require.NoError(t, err)
}

func TestInvalidBinary(t *testing.T) {
	e, c, _ := setup(t)

	err := e.Run(func(g *host.Guard) error {
		_, err := c.CompileModule(g, "broken", "broken.wasm", []byte("not wasm"))
		var ce *domainerrors.ScriptCompilationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "broken.wasm", ce.Path)
		return nil
	})
	require.NoError(t, err)
}

func TestLoaderDispatch(t *testing.T) {
	e, c, _ := setup(t)

	dir := testutil.WriteTree(t, map[string]string{
		"math/adder.wasm": string(adderWasm),
		"math/twice.js":   `(function () { return class { constructor() { this.v = new math.adder().add(21, 21); } }; })`,
	})

	report, err := e.LoadAll(dir, host.WithModuleCompiler(".wasm", c))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Factories)

	err = e.Run(func(g *host.Guard) error {
		inst, err := host.Instantiate(g, `new math.twice()`)
		require.NoError(t, err)
		assert.Equal(t, int64(42), inst.Object().Get("v").ToInteger())
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryLessModule(t *testing.T) {
	out := &bytes.Buffer{}
	rec := hostlog.NewRecorder(slog.LevelDebug)
	c, err := wazero.NewCompiler(context.Background(), wazero.WithOutput(out), wazero.WithLogger(slog.New(rec)))
	require.NoError(t, err)
	e, err := host.NewEngine(host.WithConsoleOutput(out), host.WithRuntimeResource(c))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	err = e.Run(func(g *host.Guard) error {
		f, err := c.CompileModule(g, "mute", "mute.wasm", muteWasm)
		require.NoError(t, err)
		require.NoError(t, g.Root().AddFactory(g, "mute", f))

		v, err := g.Evaluate("mute", `var m = new mute(); m.hello(); m.memoryBytes`)
		require.NoError(t, err)
		assert.Equal(t, int64(0), v.ToInteger())
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Len(t, rec.Find("wazero: guest has no memory"), 1)
}
