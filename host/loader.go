package host

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/domain/policy"
	"github.com/Tsuguri/embedded-js-tests/domain/ports"
)

// ModuleCompiler turns the contents of one module file into a factory.
// Files are dispatched to compilers by extension; files without a
// registered compiler are compiled as scripts.
type ModuleCompiler interface {
	CompileModule(g *Guard, name, origin string, src []byte) (*Factory, error)
}

// ModuleCompilerFunc adapts a function to ModuleCompiler.
type ModuleCompilerFunc func(g *Guard, name, origin string, src []byte) (*Factory, error)

// CompileModule calls f.
func (f ModuleCompilerFunc) CompileModule(g *Guard, name, origin string, src []byte) (*Factory, error) {
	return f(g, name, origin, src)
}

// ScriptCompiler compiles script modules with FromSource. An empty strategy
// uses the engine default.
func ScriptCompiler(strategy entities.ExportStrategy) ModuleCompiler {
	return ModuleCompilerFunc(func(g *Guard, name, origin string, src []byte) (*Factory, error) {
		opts := []FactoryOption{WithOrigin(origin)}
		if strategy != "" {
			opts = append(opts, WithStrategy(strategy))
		}
		return FromSource(g, name, string(src), opts...)
	})
}

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	logger      *slog.Logger
	filter      *policy.LoadFilter
	skipHandler ports.SkipHandler
	compilers   map[string]ModuleCompiler
	failureMode entities.FailureMode
	strategy    entities.ExportStrategy
	strictNames bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		skipHandler: &policy.NopSkipHandler{},
		compilers:   make(map[string]ModuleCompiler),
		failureMode: entities.FailAbort,
	}
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithLoaderLogger overrides the engine logger for one loader.
func WithLoaderLogger(l *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = l
	}
}

// WithFilter restricts which entries are loaded.
func WithFilter(f *policy.LoadFilter) LoaderOption {
	return func(c *loaderConfig) {
		c.filter = f
	}
}

// WithFailureMode selects what a module that cannot be read or compiled does
// to the load. The default, entities.FailAbort, aborts the whole load.
func WithFailureMode(m entities.FailureMode) LoaderOption {
	return func(c *loaderConfig) {
		c.failureMode = m
	}
}

// WithSkipHandler receives modules skipped in entities.FailSkip mode.
func WithSkipHandler(h ports.SkipHandler) LoaderOption {
	return func(c *loaderConfig) {
		if h != nil {
			c.skipHandler = h
		}
	}
}

// WithStrictNames additionally requires entry names to be identifiers that
// are not reserved words.
func WithStrictNames(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictNames = enabled
	}
}

// WithModuleStrategy sets the export strategy of script modules loaded by
// this loader.
func WithModuleStrategy(s entities.ExportStrategy) LoaderOption {
	return func(c *loaderConfig) {
		c.strategy = s
	}
}

// WithModuleCompiler routes files with extension ext (".wasm") to c.
func WithModuleCompiler(ext string, c ModuleCompiler) LoaderOption {
	return func(cfg *loaderConfig) {
		cfg.compilers[strings.ToLower(ext)] = c
	}
}

// Loader mirrors a directory tree into a namespace graph: directories become
// nested namespaces and files become factories named after their stem.
type Loader struct {
	config loaderConfig
}

// NewLoader creates a Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{config: cfg}
}

// LoadDir loads the directory dir of the host filesystem into root.
func (l *Loader) LoadDir(g *Guard, root *Namespace, dir string) (*entities.LoadReport, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &domainerrors.ScriptSourceReadError{Op: "stat", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &domainerrors.ScriptSourceReadError{Op: "readdir", Path: dir, Err: errors.New("not a directory")}
	}

	report, err := l.Load(g, root, os.DirFS(dir))
	if report != nil {
		report.Root = dir
	}
	return report, err
}

// Load walks fsys from its root in directory listing order and attaches
// every entry to root. A directory is loaded completely before it is
// attached to its parent, so a failing subtree never becomes visible.
//
// Read and compile failures abort the load unless the loader runs in
// entities.FailSkip mode; invalid and duplicate names always abort. Entries
// attached before an abort stay attached. The report is returned in both
// cases.
func (l *Loader) Load(g *Guard, root *Namespace, fsys fs.FS) (*entities.LoadReport, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &entities.LoadReport{Root: "."}
	logger := l.config.logger
	if logger == nil {
		logger = g.Logger()
	}

	err := l.loadDir(g, logger, root, fsys, ".", report)
	report.Metadata = entities.NewRunMetadata(EngineName, start, time.Now())
	if err != nil {
		logger.Debug("load aborted", "error", err)
		return report, err
	}
	logger.Debug("load complete",
		"namespaces", report.Namespaces,
		"factories", report.Factories,
		"skipped", len(report.Skipped),
		"duration", report.Metadata.Duration)
	return report, nil
}

func (l *Loader) loadDir(g *Guard, logger *slog.Logger, parent *Namespace, fsys fs.FS, dir string, report *entities.LoadReport) error {
	logger.Debug("loading scripts", "dir", dir)

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return &domainerrors.ScriptSourceReadError{Op: "readdir", Path: dir, Err: err}
	}

	for _, ent := range entries {
		rel := path.Join(dir, ent.Name())

		isDir, err := entryIsDir(fsys, rel, ent)
		if err != nil {
			return err
		}

		if l.config.filter != nil && !l.config.filter.Allow(rel, isDir) {
			report.Filtered = append(report.Filtered, rel)
			continue
		}

		name, err := entryName(rel, l.config.strictNames)
		if err != nil {
			return err
		}

		if isDir {
			logger.Debug("creating namespace", "name", name, "path", rel)
			child := newNamespace(name, parent.childPath(name), rel, g.Runtime().NewObject())
			if err := l.loadDir(g, logger, child, fsys, rel, report); err != nil {
				return err
			}
			if err := parent.attach(g, name, nsEntry{ns: child}); err != nil {
				return err
			}
			report.Namespaces++
			continue
		}

		f, err := l.loadFile(g, fsys, rel, name)
		if err != nil {
			if l.config.failureMode == entities.FailSkip && skippable(err) {
				logger.Warn("skipping module", "path", rel, "error", err)
				l.config.skipHandler.OnSkip(rel, err.Error())
				report.Skipped = append(report.Skipped, entities.SkippedModule{
					Path:  rel,
					Error: domainerrors.ToErrorDetail(err),
				})
				continue
			}
			return err
		}
		if err := parent.attach(g, name, nsEntry{factory: f}); err != nil {
			return err
		}
		report.Factories++
	}
	return nil
}

func (l *Loader) loadFile(g *Guard, fsys fs.FS, rel, name string) (*Factory, error) {
	src, err := fs.ReadFile(fsys, rel)
	if err != nil {
		return nil, &domainerrors.ScriptSourceReadError{Op: "read", Path: rel, Err: err}
	}

	compiler, ok := l.config.compilers[strings.ToLower(path.Ext(rel))]
	if !ok {
		compiler = ScriptCompiler(l.config.strategy)
	}
	return compiler.CompileModule(g, name, rel, src)
}

// entryIsDir resolves symlinks so a linked directory loads as a namespace.
func entryIsDir(fsys fs.FS, rel string, ent fs.DirEntry) (bool, error) {
	if ent.Type()&fs.ModeSymlink == 0 {
		return ent.IsDir(), nil
	}
	info, err := fs.Stat(fsys, rel)
	if err != nil {
		return false, &domainerrors.ScriptSourceReadError{Op: "stat", Path: rel, Err: err}
	}
	return info.IsDir(), nil
}

func skippable(err error) bool {
	return errors.Is(err, domainerrors.ErrScriptSourceRead) || errors.Is(err, domainerrors.ErrScriptCompilation)
}
