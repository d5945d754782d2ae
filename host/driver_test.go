package host_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/domain/ports"
	"github.com/Tsuguri/embedded-js-tests/host"
)

func driverInstances(t *testing.T, g *host.Guard) []*host.Instance {
	t.Helper()
	var out []*host.Instance
	for _, expr := range []string{
		`new (class Good { constructor() { this.n = 0; } update() { this.n++; } })()`,
		`new (class Bad { update() { throw new Error("bad frame"); } })()`,
		`new (class Idle {})()`,
		`new (class Late { constructor() { this.n = 0; } update() { this.n++; } })()`,
	} {
		inst, err := host.Instantiate(g, expr)
		require.NoError(t, err)
		out = append(out, inst)
	}
	return out
}

func TestDriver_IsolatesFailures(t *testing.T) {
	e, _ := newEngine(t)
	g := enter(t, e)
	insts := driverInstances(t, g)

	d := host.NewDriver(insts)
	assert.Equal(t, 4, d.Len())

	report, err := d.Tick(g)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), report.Frame)
	assert.Equal(t, 3, report.Driven)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Failures, 1)
	assert.False(t, report.OK())
	assert.Equal(t, "runtime", report.Failures[0].Error.Type)

	assert.Equal(t, int64(1), insts[0].Object().Get("n").ToInteger())
	assert.Equal(t, int64(1), insts[3].Object().Get("n").ToInteger(), "instances after a failure still run")
}

func TestDriver_AbortPolicy(t *testing.T) {
	e, _ := newEngine(t)
	g := enter(t, e)
	insts := driverInstances(t, g)

	d := host.NewDriver(insts, host.WithErrorPolicy(entities.PolicyAbort))
	report, err := d.Tick(g)
	assert.ErrorIs(t, err, domainerrors.ErrScriptRuntime)
	assert.Equal(t, 2, report.Driven)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, int64(0), insts[3].Object().Get("n").ToInteger())
}

func TestDriver_Run(t *testing.T) {
	e, _ := newEngine(t)
	g := enter(t, e)

	inst, err := host.Instantiate(g, `new (class { constructor() { this.n = 0; } update() { this.n++; } })()`)
	require.NoError(t, err)

	var slept []time.Duration
	d := host.NewDriver(nil, host.WithFrameSleeper(ports.SleeperFunc(func(d time.Duration) { slept = append(slept, d) })))
	d.Add(inst)

	reports, err := d.Run(g, 3, 16*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, uint64(3), reports[2].Frame)
	assert.Equal(t, int64(3), inst.Object().Get("n").ToInteger())
	assert.Equal(t, []time.Duration{16 * time.Millisecond, 16 * time.Millisecond}, slept)
}

func TestDriver_RejectsReleasedGuard(t *testing.T) {
	e, _ := newEngine(t)
	g, err := e.Enter()
	require.NoError(t, err)
	g.Release()

	_, err = host.NewDriver(nil).Tick(g)
	assert.ErrorIs(t, err, domainerrors.ErrContextEntry)
}
