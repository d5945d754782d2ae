// Package policy decides which entries of a script tree the loader may turn
// into namespaces and factories.
package policy

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/Tsuguri/embedded-js-tests/domain/ports"
)

// DefaultExclude skips dot-files and dot-directories at any depth.
var DefaultExclude = []string{"**/.*"}

// filterConfig holds configuration for the LoadFilter.
type filterConfig struct {
	skipHandler ports.SkipHandler // Handler invoked for every rejected entry
	include     []string          // File patterns; empty means every file
	exclude     []string          // File and directory patterns
}

func defaultFilterConfig() filterConfig {
	return filterConfig{
		exclude:     DefaultExclude,
		skipHandler: &NopSkipHandler{},
	}
}

// FilterOption configures the LoadFilter.
type FilterOption func(*filterConfig)

// WithInclude restricts module files to those matching at least one pattern.
// Directories are never rejected by include patterns, only by excludes.
func WithInclude(patterns ...string) FilterOption {
	return func(c *filterConfig) {
		c.include = append(c.include, patterns...)
	}
}

// WithExclude replaces the exclude patterns. Pass no patterns to disable the
// default dot-entry exclusion.
func WithExclude(patterns ...string) FilterOption {
	return func(c *filterConfig) {
		c.exclude = patterns
	}
}

// WithSkipHandler sets the handler notified of rejected entries.
func WithSkipHandler(h ports.SkipHandler) FilterOption {
	return func(c *filterConfig) {
		if h != nil {
			c.skipHandler = h
		}
	}
}

// LoadFilter matches slash-separated paths relative to the load root against
// doublestar glob patterns. It is immutable and safe for concurrent use.
type LoadFilter struct {
	config filterConfig
}

// NewLoadFilter creates a LoadFilter, rejecting malformed patterns.
func NewLoadFilter(opts ...FilterOption) (*LoadFilter, error) {
	cfg := defaultFilterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, p := range append(append([]string(nil), cfg.include...), cfg.exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid load pattern %q", p)
		}
	}
	return &LoadFilter{config: cfg}, nil
}

// Allow reports whether the entry at rel may be loaded. Rejections are
// reported to the skip handler.
func (f *LoadFilter) Allow(rel string, isDir bool) bool {
	rel = path.Clean(rel)

	for _, pattern := range f.config.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			f.config.skipHandler.OnSkip(rel, "excluded by "+pattern)
			return false
		}
	}

	if isDir || len(f.config.include) == 0 {
		return true
	}
	for _, pattern := range f.config.include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	f.config.skipHandler.OnSkip(rel, "not matched by include patterns")
	return false
}

// Include returns a copy of the include patterns.
func (f *LoadFilter) Include() []string {
	return append([]string(nil), f.config.include...)
}

// Exclude returns a copy of the exclude patterns.
func (f *LoadFilter) Exclude() []string {
	return append([]string(nil), f.config.exclude...)
}
