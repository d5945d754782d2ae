// Package config loads the host configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/domain/policy"
	"github.com/Tsuguri/embedded-js-tests/host"
	"github.com/Tsuguri/embedded-js-tests/hostfuncs"
	hostlog "github.com/Tsuguri/embedded-js-tests/log"
)

// validate caches struct metadata across calls.
var validate = validator.New()

// Defaults applied to zero fields.
const (
	DefaultFrames        = 1
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultLogLevel      = "info"
)

// Config is the host configuration.
type Config struct {
	ScriptRoot      string        `yaml:"script_root" json:"script_root" validate:"required" jsonschema:"description=Directory mirrored into the global namespace"`
	ExportStrategy  string        `yaml:"export_strategy" json:"export_strategy,omitempty" validate:"omitempty,oneof=construct direct" jsonschema:"enum=construct,enum=direct,default=construct"`
	FailureMode     string        `yaml:"failure_mode" json:"failure_mode,omitempty" validate:"omitempty,oneof=abort skip" jsonschema:"enum=abort,enum=skip,default=abort"`
	ErrorPolicy     string        `yaml:"error_policy" json:"error_policy,omitempty" validate:"omitempty,oneof=isolate abort" jsonschema:"enum=isolate,enum=abort,default=isolate"`
	Include         []string      `yaml:"include" json:"include,omitempty" jsonschema:"description=Doublestar globs of module files to load"`
	Exclude         []string      `yaml:"exclude" json:"exclude,omitempty" jsonschema:"description=Doublestar globs to skip; defaults to dot-entries"`
	StrictNames     bool          `yaml:"strict_names" json:"strict_names,omitempty"`
	Frames          int           `yaml:"frames" json:"frames,omitempty" validate:"gte=0"`
	FrameInterval   time.Duration `yaml:"frame_interval" json:"frame_interval,omitempty" validate:"gte=0"`
	MaxCallStack    int           `yaml:"max_call_stack" json:"max_call_stack,omitempty" validate:"gte=0"`
	LogLevel        string        `yaml:"log_level" json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	TimeoutSentinel *int          `yaml:"timeout_sentinel" json:"timeout_sentinel,omitempty"`
	Require         RequireConfig `yaml:"require" json:"require,omitempty"`
	Wasm            WasmConfig    `yaml:"wasm" json:"wasm,omitempty"`
	OutputLimit     int           `yaml:"output_limit" json:"output_limit,omitempty" validate:"gte=0" jsonschema:"description=Capture at most this many bytes of script output and print it after the run; zero streams it"`
	Instantiate     []string      `yaml:"instantiate" json:"instantiate,omitempty" validate:"dive,required" jsonschema:"description=Construction expressions evaluated after loading"`
}

// RequireConfig enables require() inside scripts.
type RequireConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled,omitempty"`
	Folders []string `yaml:"folders" json:"folders,omitempty" validate:"dive,required"`
}

// WasmConfig enables .wasm modules in the script tree.
type WasmConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled,omitempty"`
}

// Default returns a Config with every default applied and no script root.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.ExportStrategy == "" {
		c.ExportStrategy = string(entities.ExportConstructThenUse)
	}
	if c.FailureMode == "" {
		c.FailureMode = string(entities.FailAbort)
	}
	if c.ErrorPolicy == "" {
		c.ErrorPolicy = string(entities.PolicyIsolate)
	}
	if c.Frames == 0 {
		c.Frames = DefaultFrames
	}
	if c.FrameInterval == 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.TimeoutSentinel == nil {
		s := hostfuncs.DefaultTimeoutSentinel
		c.TimeoutSentinel = &s
	}
}

// Validate checks struct tags and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &domainerrors.ConfigError{Field: verrs[0].Namespace(), Err: err}
		}
		return &domainerrors.ConfigError{Err: err}
	}
	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if _, err := policy.NewLoadFilter(policy.WithInclude(p)); err != nil {
			return &domainerrors.ConfigError{Field: "include/exclude", Err: err}
		}
	}
	if c.Require.Enabled && len(c.Require.Folders) == 0 {
		return &domainerrors.ConfigError{Field: "require.folders", Err: fmt.Errorf("require is enabled without module folders")}
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() slog.Level {
	level, err := hostlog.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// EngineOptions translates the engine part of the configuration.
func (c *Config) EngineOptions() []host.Option {
	opts := []host.Option{
		host.WithExportStrategy(entities.ExportStrategy(c.ExportStrategy)),
		host.WithMaxCallStackSize(c.MaxCallStack),
	}
	if c.Require.Enabled {
		opts = append(opts, host.WithRequire(c.Require.Folders...))
	}
	return opts
}

// LoaderOptions translates the load part of the configuration.
func (c *Config) LoaderOptions() ([]host.LoaderOption, error) {
	opts := []host.LoaderOption{
		host.WithFailureMode(entities.FailureMode(c.FailureMode)),
		host.WithStrictNames(c.StrictNames),
	}

	if len(c.Include) > 0 || c.Exclude != nil {
		var fopts []policy.FilterOption
		if len(c.Include) > 0 {
			fopts = append(fopts, policy.WithInclude(c.Include...))
		}
		if c.Exclude != nil {
			fopts = append(fopts, policy.WithExclude(c.Exclude...))
		}
		filter, err := policy.NewLoadFilter(fopts...)
		if err != nil {
			return nil, &domainerrors.ConfigError{Field: "include/exclude", Err: err}
		}
		opts = append(opts, host.WithFilter(filter))
	}
	return opts, nil
}

// DriverOptions translates the frame loop part of the configuration.
func (c *Config) DriverOptions() []host.DriverOption {
	return []host.DriverOption{
		host.WithErrorPolicy(entities.ErrorPolicy(c.ErrorPolicy)),
	}
}
