// Command embjs loads a script tree into an embedded JavaScript engine,
// instantiates scripts and drives their update() for a number of frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Tsuguri/embedded-js-tests/application/config"
	"github.com/Tsuguri/embedded-js-tests/application/schema"
	"github.com/Tsuguri/embedded-js-tests/application/template"
	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	"github.com/Tsuguri/embedded-js-tests/domain/policy"
	"github.com/Tsuguri/embedded-js-tests/host"
	"github.com/Tsuguri/embedded-js-tests/hostfuncs"
	"github.com/Tsuguri/embedded-js-tests/infrastructure/parser"
	"github.com/Tsuguri/embedded-js-tests/infrastructure/wazero"
	hostlog "github.com/Tsuguri/embedded-js-tests/log"
	"github.com/Tsuguri/embedded-js-tests/natives"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 64
)

// demoClass is defined at the root after loading. Constructing it needs
// namespace1.file2 in the loaded tree.
const demoClass = `(class Prostokat {
	constructor() {
		this.wysokosc = 10;
		this.szerokosc = 20;
		this.whatever = new namespace1.file2();
		console.log("constructed");
	}
})`

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ", ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("embjs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	scripts := fs.String("scripts", "", "Script root directory (overrides script_root)")
	frames := fs.Int("frames", -1, "Number of frames to drive (overrides frames)")
	schemaFlag := fs.Bool("schema", false, "Print the configuration JSON schema and exit")
	var exprs stringList
	fs.Var(&exprs, "new", "Construction expression to instantiate, e.g. \"new namespace1.file2()\" (repeatable)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *schemaFlag {
		out, err := schema.ConfigSchema()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		fmt.Fprintln(stdout, string(out))
		return exitOK
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if *scripts != "" {
		cfg.ScriptRoot = *scripts
	}
	if *frames >= 0 {
		cfg.Frames = *frames
	}
	cfg.Instantiate = append(cfg.Instantiate, exprs...)
	if cfg.ScriptRoot == "" {
		fmt.Fprintln(stderr, "Usage: embjs -scripts <dir> [-config file] [-frames n] [-new expr]...")
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	logger := hostlog.NewLogger(stderr, hostlog.WithLevel(cfg.Level()))
	if err := execute(ctx, cfg, logger, stdout); err != nil {
		logger.Error("run failed", "error", err)
		return exitFailure
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	loader := config.NewLoader(
		config.WithParser(parser.NewYAMLParser()),
		config.WithTemplateEngine(template.NewGoTemplateEngine()),
	)
	return loader.LoadFile(path)
}

func execute(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (err error) {
	if cfg.OutputLimit > 0 {
		out, captured := stdout, hostfuncs.NewBoundedBuffer(cfg.OutputLimit)
		defer func() {
			_, _ = io.WriteString(out, captured.String())
			if captured.Truncated() {
				logger.Warn("script output truncated", "limit", cfg.OutputLimit)
			}
		}()
		stdout = captured
	}

	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(logger),
		),
		hostfuncs.WithBundle(hostfuncs.Combine(
			hostfuncs.ConsoleBundle(stdout),
			hostfuncs.TimerBundle(
				hostfuncs.WithSentinel(int64(*cfg.TimeoutSentinel)),
				hostfuncs.WithTimerLogger(logger),
			),
		)),
	)
	if err != nil {
		return fmt.Errorf("failed to create host functions: %w", err)
	}

	opts := append(cfg.EngineOptions(), host.WithLogger(logger), host.WithHostFunctions(registry))
	loadOpts, err := cfg.LoaderOptions()
	if err != nil {
		return err
	}
	loadOpts = append(loadOpts,
		host.WithLoaderLogger(logger),
		host.WithSkipHandler(&policy.LogSkipHandler{Logger: logger}),
	)

	if cfg.Wasm.Enabled {
		compiler, err := wazero.NewCompiler(ctx, wazero.WithLogger(logger), wazero.WithOutput(stdout))
		if err != nil {
			return err
		}
		opts = append(opts, host.WithRuntimeResource(compiler))
		loadOpts = append(loadOpts, host.WithModuleCompiler(".wasm", compiler))
	}

	engine, err := host.NewEngine(opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, engine.Close())
	}()

	return engine.Run(func(g *host.Guard) error {
		if _, err := natives.InstallVector(g, stdout); err != nil {
			return err
		}

		report, err := host.NewLoader(loadOpts...).LoadDir(g, g.Root(), cfg.ScriptRoot)
		if err != nil {
			return err
		}
		logger.Info("scripts loaded",
			"root", report.Root,
			"namespaces", report.Namespaces,
			"factories", report.Factories,
			"skipped", len(report.Skipped))

		demo, err := host.FromSource(g, "Prostokat", demoClass, host.WithStrategy(entities.ExportDirectValue))
		if err != nil {
			return err
		}
		if err := g.Root().AddFactory(g, demo.Name(), demo); err != nil {
			return err
		}

		instances := make([]*host.Instance, 0, len(cfg.Instantiate))
		for _, expr := range cfg.Instantiate {
			inst, err := host.Instantiate(g, expr)
			if err != nil {
				return err
			}
			instances = append(instances, inst)
		}

		driverOpts := append(cfg.DriverOptions(), host.WithDriverLogger(logger))
		reports, err := host.NewDriver(instances, driverOpts...).Run(g, cfg.Frames, cfg.FrameInterval)
		failures := 0
		for _, r := range reports {
			failures += len(r.Failures)
		}
		logger.Info("frames driven", "frames", len(reports), "instances", len(instances), "failures", failures)
		return err
	})
}
