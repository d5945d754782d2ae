// Package template renders configuration files with text/template before
// they are parsed.
package template

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"

	"github.com/Tsuguri/embedded-js-tests/domain/ports"
)

type templateConfig struct {
	strict bool // fail on missing keys
	delims [2]string
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		strict: true,
		delims: [2]string{"{{", "}}"},
	}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithDelims changes the action delimiters, for config files whose values
// themselves contain "{{".
func WithDelims(left, right string) TemplateOption {
	return func(c *templateConfig) {
		if left != "" && right != "" {
			c.delims = [2]string{left, right}
		}
	}
}

// GoTemplateEngine implements ports.TemplateEngine with text/template.
//
// Besides field access, templates can use:
//
//	env NAME            the variable NAME from .env, or "" when unset
//	default FALLBACK V  V, or FALLBACK when V is empty
//	quote V             V as a double-quoted YAML scalar
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a new GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

// Render executes raw as a template with data as the root object, so a
// config file refers to environment variables as {{ .env.NAME }}.
func (e *GoTemplateEngine) Render(raw []byte, data map[string]any) ([]byte, error) {
	tmpl := template.New("config").
		Delims(e.config.delims[0], e.config.delims[1]).
		Funcs(funcs(data))
	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute config template: %w", err)
	}
	return buf.Bytes(), nil
}

func funcs(data map[string]any) template.FuncMap {
	return template.FuncMap{
		"env": func(name string) string {
			switch env := data["env"].(type) {
			case map[string]string:
				return env[name]
			case map[string]any:
				if s, ok := env[name].(string); ok {
					return s
				}
			}
			return ""
		},
		"default": func(fallback string, v any) string {
			if v == nil {
				return fallback
			}
			if s := fmt.Sprint(v); s != "" {
				return s
			}
			return fallback
		},
		"quote": func(v any) string {
			return strconv.Quote(fmt.Sprint(v))
		},
	}
}
