package config

import (
	"fmt"
	"os"
	"strings"

	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/domain/ports"
)

// Loader runs the configuration pipeline: render, parse, defaults, validate.
type Loader struct {
	parser   ports.ConfigParser
	renderer ports.TemplateEngine
	environ  func() []string
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithParser sets the config parser.
func WithParser(p ports.ConfigParser) LoaderOption {
	return func(l *Loader) {
		l.parser = p
	}
}

// WithTemplateEngine sets the template engine. Without one the file is
// parsed as is.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(l *Loader) {
		l.renderer = t
	}
}

// WithEnviron replaces os.Environ as the source of {{ .env }}.
func WithEnviron(fn func() []string) LoaderOption {
	return func(l *Loader) {
		l.environ = fn
	}
}

// NewLoader creates a new Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{environ: os.Environ}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds a validated Config from raw file contents.
func (l *Loader) Load(raw []byte) (*Config, error) {
	if l.parser == nil {
		return nil, fmt.Errorf("config parser is required")
	}

	data := raw
	if l.renderer != nil {
		var err error
		data, err = l.renderer.Render(data, map[string]any{"env": envMap(l.environ())})
		if err != nil {
			return nil, &domainerrors.ConfigError{Err: fmt.Errorf("failed to render config: %w", err)}
		}
	}

	cfg := &Config{}
	if err := l.parser.Parse(data, cfg); err != nil {
		return nil, &domainerrors.ConfigError{Err: fmt.Errorf("failed to parse config: %w", err)}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path and loads it.
func (l *Loader) LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &domainerrors.ConfigError{Err: fmt.Errorf("failed to read config: %w", err)}
	}
	return l.Load(raw)
}

func envMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
