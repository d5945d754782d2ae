package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsuguri/embedded-js-tests/internal/testutil"
)

var exampleScripts = filepath.Join("..", "..", "examples", "scripts")

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunExampleTree(t *testing.T) {
	code, stdout, stderr := runCLI(t,
		"-scripts", exampleScripts,
		"-frames", "2",
		"-new", "new namespace1.file2()",
		"-new", "new counter(5)",
		"-new", "new geometry.arrow()",
		"-new", "new Prostokat()",
	)
	require.Equal(t, exitOK, code, stderr)

	testutil.AssertLines(t, []string{
		"constructed",
		"file2 frame 2",
		"counter 1 = 6",
		"Vector(2, 0, 0)",
		"file2 frame 3",
		"counter 1 = 7",
		"Vector(4, 0, 0)",
	}, stdout)
	assert.Contains(t, stderr, "scripts loaded")
	assert.Contains(t, stderr, "frames driven")
}

func TestRunWithConfigFile(t *testing.T) {
	abs, err := filepath.Abs(exampleScripts)
	require.NoError(t, err)
	t.Setenv("EMBJS_TEST_ROOT", abs)

	dir := testutil.WriteTree(t, map[string]string{
		"embjs.yaml": `script_root: {{ .env.EMBJS_TEST_ROOT }}
frames: 1
frame_interval: 1ms
timeout_sentinel: 7
instantiate:
  - new counter()
`,
	})

	code, stdout, stderr := runCLI(t, "-config", filepath.Join(dir, "embjs.yaml"), "-new", "new counter(10)")
	require.Equal(t, exitOK, code, stderr)
	testutil.AssertLines(t, []string{
		"counter 1 = 1",
		"counter 2 = 11",
	}, stdout)
}

func TestScriptErrorsAreIsolated(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"bad.js": `(function () { return class { update() { throw new Error("boom"); } }; })`,
		"ok.js":  `(function () { return class { update() { console.log("ok"); } }; })`,
	})

	code, stdout, stderr := runCLI(t, "-scripts", root, "-new", "new bad()", "-new", "new ok()")
	require.Equal(t, exitOK, code, stderr)
	testutil.AssertLines(t, []string{"ok"}, stdout)
	assert.Contains(t, stderr, "boom")
}

func TestSchemaFlag(t *testing.T) {
	code, stdout, _ := runCLI(t, "-schema")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, `"script_root"`)
	assert.Contains(t, stdout, `"failure_mode"`)
}

func TestUsageErrors(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Usage: embjs")

	code, _, _ = runCLI(t, "-frames", "many")
	assert.Equal(t, exitUsage, code)
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "missing script root",
			args: []string{"-scripts", filepath.Join(t.TempDir(), "missing")},
			want: "run failed",
		},
		{
			name: "missing config file",
			args: []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")},
			want: "failed to read config",
		},
		{
			name: "unknown factory",
			args: []string{"-scripts", exampleScripts, "-new", "new nowhere()"},
			want: "nowhere",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, exitFailure, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestOutputLimit(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"chatty.js": `(function () { return class { update() { console.log("0123456789"); } }; })`,
	})
	dir := testutil.WriteTree(t, map[string]string{
		"embjs.yaml": "script_root: " + root + "\noutput_limit: 15\nframes: 3\nframe_interval: 1ms\n",
	})

	code, stdout, stderr := runCLI(t, "-config", filepath.Join(dir, "embjs.yaml"), "-new", "new chatty()")
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "0123456789\n0123", stdout)
	assert.Contains(t, stderr, "script output truncated")
}

func TestExampleConfig(t *testing.T) {
	abs, err := filepath.Abs(exampleScripts)
	require.NoError(t, err)
	t.Setenv("EMBJS_SCRIPTS", abs)

	code, stdout, stderr := runCLI(t, "-config", filepath.Join("..", "..", "examples", "embjs.yaml"), "-frames", "1")
	require.Equal(t, exitOK, code, stderr)
	testutil.AssertLines(t, []string{
		"constructed",
		"file2 frame 2",
		"counter 1 = 6",
		"Vector(2, 0, 0)",
	}, stdout)
}

func TestRunNativeConstruction(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"measure.js": `(function () { return class { constructor() { this.v = new Vector(3, 4); } update() { this.v.log(); console.log(this.v.length()); } }; })`,
	})

	code, stdout, stderr := runCLI(t, "-scripts", root, "-frames", "1", "-new", "new Vector(1, 2, 3)", "-new", "new measure()")
	require.Equal(t, exitOK, code, stderr)
	testutil.AssertLines(t, []string{"Vector(3, 4, 0)", "5"}, stdout)
}
