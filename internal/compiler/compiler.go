// Package compiler turns a chart's entry point into a bundle, either once or
// continuously in watch mode.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Target is the input and output of one chart compilation.
type Target struct {
	// Name is the chart name.
	Name string
	// Entry is the entry point, e.g. chart/<name>/index.js.
	Entry string
	// Outfile is the bundle path, e.g. dist/<name>/<name>.js.
	Outfile string
	// SourceDir is the chart source directory watched in watch mode.
	SourceDir string
}

// Report is the outcome of a single compilation.
type Report interface {
	fmt.Stringer
	// Failed reports whether the compilation produced errors.
	Failed() bool
}

// Compiler is the interface that all chart compilers must implement.
type Compiler interface {
	// Name returns the compiler kind (e.g. "esbuild", "command").
	Name() string

	// Build compiles the target once. A non-nil error means the compiler
	// could not run at all; compile errors are reported through Report.
	Build(ctx context.Context, target Target) (Report, error)

	// Watch compiles the target and recompiles it on every source change,
	// calling onBuild after each compilation. It blocks until ctx is done and
	// does not call onBuild after it returns.
	Watch(ctx context.Context, target Target, onBuild func(Report)) error
}

// Options configures a compiler.
type Options struct {
	// Kind selects the compiler implementation.
	Kind string
	// Command is the external build command used by the "command" compiler.
	// Arguments may contain {entry}, {outfile}, {outdir}, {name} and {srcdir}.
	Command []string
	// Minify enables minification for the esbuild compiler.
	Minify bool
	// Sourcemap emits a linked source map next to the bundle.
	Sourcemap bool
	// Color enables ANSI colors in build reports.
	Color bool
	// Debounce is the quiet period before a source change triggers a rebuild.
	Debounce time.Duration
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Factory creates a compiler from options.
type Factory func(opts Options) (Compiler, error)

// Registry holds the available compiler kinds.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register registers a compiler kind.
func (r *Registry) Register(kind string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("compiler %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// New creates a compiler of kind opts.Kind.
func (r *Registry) New(opts Options) (Compiler, error) {
	r.mu.RLock()
	factory, ok := r.factories[opts.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown compiler: %q (available: %v)", opts.Kind, r.List())
	}
	return factory(opts)
}

// List returns all registered compiler kinds, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// DefaultRegistry is the global compiler registry.
var DefaultRegistry = NewRegistry()

// Register registers a compiler kind in the default registry.
func Register(kind string, factory Factory) error {
	return DefaultRegistry.Register(kind, factory)
}

// New creates a compiler from the default registry.
func New(opts Options) (Compiler, error) {
	return DefaultRegistry.New(opts)
}
