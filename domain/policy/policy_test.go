package policy_test

import (
	"testing"

	"github.com/Tsuguri/embedded-js-tests/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFilter_Defaults(t *testing.T) {
	rec := &policy.RecordingSkipHandler{}
	f, err := policy.NewLoadFilter(policy.WithSkipHandler(rec))
	require.NoError(t, err)

	assert.True(t, f.Allow("a.js", false))
	assert.True(t, f.Allow("ns/b.js", false))
	assert.True(t, f.Allow("ns", true))
	assert.False(t, f.Allow(".DS_Store", false))
	assert.False(t, f.Allow("ns/.git", true))
	assert.False(t, f.Allow("ns/inner/.hidden.js", false))

	assert.Equal(t, []string{".DS_Store", "ns/.git", "ns/inner/.hidden.js"}, rec.Paths())
}

func TestLoadFilter_Include(t *testing.T) {
	f, err := policy.NewLoadFilter(policy.WithInclude("**/*.js", "**/*.wasm"))
	require.NoError(t, err)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"a.js", false, true},
		{"deep/er/b.js", false, true},
		{"mod.wasm", false, true},
		{"README.md", false, false},
		{"docs", true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Allow(tt.path, tt.isDir), tt.path)
	}
}

func TestLoadFilter_ExcludeOverride(t *testing.T) {
	f, err := policy.NewLoadFilter(policy.WithExclude("vendor/**", "vendor"))
	require.NoError(t, err)

	assert.True(t, f.Allow(".hidden.js", false), "default dot exclusion replaced")
	assert.False(t, f.Allow("vendor", true))
	assert.False(t, f.Allow("vendor/lib.js", false))
	assert.Equal(t, []string{"vendor/**", "vendor"}, f.Exclude())
	assert.Empty(t, f.Include())
}

func TestLoadFilter_InvalidPattern(t *testing.T) {
	_, err := policy.NewLoadFilter(policy.WithInclude("[unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid load pattern")
}

func FuzzLoadFilterAllow(f *testing.F) {
	filter, err := policy.NewLoadFilter(
		policy.WithInclude("**/*.js"),
		policy.WithSkipHandler(&policy.NopSkipHandler{}),
	)
	if err != nil {
		f.Fatal(err)
	}
	f.Add("a.js", false)
	f.Add("ns/.hidden", true)
	f.Add("../../etc/passwd", false)

	f.Fuzz(func(t *testing.T, path string, isDir bool) {
		// only checks that arbitrary input never panics
		filter.Allow(path, isDir)
	})
}
