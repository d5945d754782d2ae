// Package testutil provides common test utilities and assertions for module tests
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertDurationWithin asserts that a duration is within a tolerance of an expected value
func AssertDurationWithin(t *testing.T, expected, actual, tolerance time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	diff := expected - actual
	if diff < 0 {
		diff = -diff
	}

	assert.LessOrEqual(t, diff, tolerance, msgAndArgs...)
}

// AssertAtLeast asserts that a measured duration is not shorter than min.
// Sleep-based tests use it instead of an upper bound on loaded CI machines.
func AssertAtLeast(t *testing.T, minimum, actual time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	assert.GreaterOrEqual(t, actual, minimum, msgAndArgs...)
}

// AssertLines asserts that output consists of exactly the given lines,
// each terminated by a newline.
func AssertLines(t *testing.T, expected []string, output string, msgAndArgs ...interface{}) {
	t.Helper()

	want := ""
	for _, line := range expected {
		want += line + "\n"
	}
	assert.Equal(t, want, output, msgAndArgs...)
}

// WriteTree materializes files (slash-separated relative path -> content)
// under a fresh temporary directory and returns its path. A path ending in
// "/" creates an empty directory.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if p[len(p)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(files[p]), 0o600))
	}
	return root
}
