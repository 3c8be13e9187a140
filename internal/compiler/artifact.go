package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/dosanma1/chartpack/internal/chart"
)

// ErrCompileFailed is reported when a one-shot compilation fails.
var ErrCompileFailed = errors.New("compilation failed")

// Stream delivers the build events of one compiler run.
type Stream struct {
	events chan chart.BuildEvent
	err    error
}

// Events returns the build events. The channel is closed when the run ends:
// after the single build in one-shot mode, on cancellation in watch mode.
func (s *Stream) Events() <-chan chart.BuildEvent {
	return s.events
}

// Err returns the reason the run ended. Only valid once Events is closed.
func (s *Stream) Err() error {
	return s.err
}

// ArtifactCompiler adapts a Compiler to chart build requests and emits a
// BuildEvent for every successful compilation.
type ArtifactCompiler struct {
	compiler Compiler
	layout   chart.Layout
	logger   *slog.Logger

	// Reports receives the human readable report of every build.
	Reports io.Writer
}

// NewArtifactCompiler wraps c.
func NewArtifactCompiler(c Compiler, layout chart.Layout, logger *slog.Logger) *ArtifactCompiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactCompiler{
		compiler: c,
		layout:   layout,
		logger:   logger.With("component", "compiler", "kind", c.Name()),
		Reports:  os.Stderr,
	}
}

// Target returns the compile target for a chart.
func (a *ArtifactCompiler) Target(name string) Target {
	return Target{
		Name:      name,
		Entry:     a.layout.EntryPath(name),
		Outfile:   a.layout.BundlePath(name),
		SourceDir: a.layout.SourceDir(name),
	}
}

// Start compiles the requested chart. In one-shot mode exactly one event is
// emitted on success; in watch mode one event per successful rebuild until
// ctx is cancelled. Failed rebuilds in watch mode are logged and skipped.
func (a *ArtifactCompiler) Start(ctx context.Context, req chart.BuildRequest) *Stream {
	s := &Stream{events: make(chan chart.BuildEvent)}
	target := a.Target(req.Name)

	if req.Watch {
		go a.watch(ctx, req, target, s)
	} else {
		go a.once(ctx, req, target, s)
	}
	return s
}

func (a *ArtifactCompiler) once(ctx context.Context, req chart.BuildRequest, target Target, s *Stream) {
	defer close(s.events)

	report, err := a.compiler.Build(ctx, target)
	if err != nil {
		a.logger.Error("compiler did not run", "chart", req.Name, "err", err)
		s.err = fmt.Errorf("%w: %w", ErrCompileFailed, err)
		return
	}
	a.printReport(report)

	if report.Failed() {
		a.logger.Error("build failed", "chart", req.Name)
		s.err = ErrCompileFailed
		return
	}
	a.logger.Debug("build succeeded", "chart", req.Name)

	select {
	case s.events <- chart.BuildEvent{Request: req, Seq: 1, Report: report.String()}:
	case <-ctx.Done():
		s.err = ctx.Err()
	}
}

func (a *ArtifactCompiler) watch(ctx context.Context, req chart.BuildRequest, target Target, s *Stream) {
	var (
		mu     sync.Mutex
		closed bool
		seq    uint64
	)

	onBuild := func(report Report) {
		a.printReport(report)
		if report.Failed() {
			a.logger.Warn("rebuild failed, waiting for changes", "chart", req.Name)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		seq++
		a.logger.Debug("rebuild succeeded", "chart", req.Name, "seq", seq)

		select {
		case s.events <- chart.BuildEvent{Request: req, Seq: seq, Report: report.String()}:
		case <-ctx.Done():
		}
	}

	err := a.compiler.Watch(ctx, target, onBuild)

	mu.Lock()
	closed = true
	if err != nil && ctx.Err() == nil {
		a.logger.Error("watcher stopped", "chart", req.Name, "err", err)
		s.err = err
	}
	close(s.events)
	mu.Unlock()
}

func (a *ArtifactCompiler) printReport(report Report) {
	if a.Reports == nil {
		return
	}
	fmt.Fprintf(a.Reports, "[build] %s\n", report)
}
