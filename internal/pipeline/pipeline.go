// Package pipeline wires compilation, descriptor copy, archiving and the
// optional deploy branch into a single run for one chart.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/alecthomas/types/pubsub"
	"golang.org/x/sync/errgroup"

	"github.com/dosanma1/chartpack/internal/chart"
	"github.com/dosanma1/chartpack/internal/compiler"
	"github.com/dosanma1/chartpack/internal/deployer"
)

// ErrNoDeployer is returned when a deploy is requested without a deployer.
var ErrNoDeployer = errors.New("deploy requested but no deployer configured")

// Compiler starts compilation for a request.
type Compiler interface {
	Start(ctx context.Context, req chart.BuildRequest) *compiler.Stream
}

// Stage transforms a build event, passing it through on success.
type Stage interface {
	Process(ctx context.Context, ev chart.BuildEvent) (chart.BuildEvent, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, ev chart.BuildEvent) (chart.BuildEvent, error)

func (f StageFunc) Process(ctx context.Context, ev chart.BuildEvent) (chart.BuildEvent, error) {
	return f(ctx, ev)
}

// Options configures a Pipeline.
type Options struct {
	Layout   chart.Layout
	Compiler Compiler
	Copier   Stage
	Archiver Stage
	// Deployer is required only for requests with Deploy set.
	Deployer deployer.Deployer
	Logger   *slog.Logger
	// OnState observes every transition. It is called from several
	// goroutines and must be safe for concurrent use.
	OnState func(Transition)
}

// Pipeline runs build requests for charts.
type Pipeline struct {
	layout   chart.Layout
	compiler Compiler
	copier   Stage
	archiver Stage
	deployer deployer.Deployer
	logger   *slog.Logger
	onState  func(Transition)

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		layout:   opts.Layout,
		compiler: opts.Compiler,
		copier:   opts.Copier,
		archiver: opts.Archiver,
		deployer: opts.Deployer,
		logger:   logger.With("component", "pipeline"),
		onState:  opts.OnState,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Run executes req. In one-shot mode it returns once the single build event
// reached Done or Stalled, returning the error that stalled it. In watch mode
// it runs until ctx is cancelled and returns nil; per-event failures are
// logged and do not stop the run.
func (p *Pipeline) Run(ctx context.Context, req chart.BuildRequest) error {
	logger := p.logger.With("chart", req.Name, "mode", req.Mode())

	p.transition(Transition{Chart: req.Name, State: Validating})
	if err := p.layout.Validate(req); err != nil {
		p.transition(Transition{Chart: req.Name, State: Stalled, Err: err})
		return err
	}
	if req.Deploy && p.deployer == nil {
		p.transition(Transition{Chart: req.Name, State: Stalled, Err: ErrNoDeployer})
		return ErrNoDeployer
	}

	// Every archive is built from a fresh output directory.
	if err := os.RemoveAll(p.layout.OutputDir(req.Name)); err != nil {
		err = fmt.Errorf("clean output: %w", err)
		p.transition(Transition{Chart: req.Name, State: Stalled, Err: err})
		return err
	}

	var (
		errMu    sync.Mutex
		firstErr error
	)
	fail := func(ev chart.BuildEvent, err error) {
		logger.Error("event stalled", "seq", ev.Seq, "err", err)
		p.transition(Transition{Chart: ev.Request.Name, Seq: ev.Seq, State: Stalled, Err: err})
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	var (
		g        errgroup.Group
		deploys  sync.WaitGroup
		topic    = pubsub.New[chart.BuildEvent]()
		finished = make(chan struct{})
	)

	// The deploy branch subscribes before compilation starts so that no
	// archived event is published without a listener.
	if req.Deploy {
		archived := topic.Subscribe(make(chan chart.BuildEvent, 64))
		g.Go(func() error {
			defer topic.Unsubscribe(archived)
			for {
				select {
				case ev, ok := <-archived:
					if !ok {
						return nil
					}
					if err := p.deploy(ctx, ev); err != nil {
						fail(ev, err)
					} else {
						p.transition(Transition{Chart: ev.Request.Name, Seq: ev.Seq, State: Done})
					}
					deploys.Done()
				case <-finished:
					return nil
				}
			}
		})
	}

	logger.Info("starting")
	p.transition(Transition{Chart: req.Name, State: Compiling})
	stream := p.compiler.Start(ctx, req)

	for built := range stream.Events() {
		logger.Debug("built", "seq", built.Seq)
		ev, err := p.stage(ctx, built)
		if err != nil {
			fail(ev, err)
			continue
		}
		if !req.Deploy {
			p.transition(Transition{Chart: ev.Request.Name, Seq: ev.Seq, State: Done})
			continue
		}
		deploys.Add(1)
		topic.Publish(ev)
	}

	deploys.Wait()
	close(finished)
	_ = g.Wait()
	if err := topic.Close(); err != nil {
		logger.Debug("closing archived topic", "err", err)
	}

	if err := stream.Err(); err != nil {
		if req.Watch && errors.Is(err, context.Canceled) {
			return nil
		}
		p.transition(Transition{Chart: req.Name, State: Stalled, Err: err})
		return err
	}
	if req.Watch {
		logger.Info("watch stopped")
		return nil
	}

	errMu.Lock()
	defer errMu.Unlock()
	if firstErr != nil {
		return firstErr
	}
	logger.Info("done")
	return nil
}

// stage runs copy then archive while holding the chart's run lock.
func (p *Pipeline) stage(ctx context.Context, ev chart.BuildEvent) (chart.BuildEvent, error) {
	mu := p.lock(ev.Request.Name)
	mu.Lock()
	defer mu.Unlock()

	p.transition(Transition{Chart: ev.Request.Name, Seq: ev.Seq, State: CopyingDescriptor})
	ev, err := p.copier.Process(ctx, ev)
	if err != nil {
		return ev, fmt.Errorf("copy descriptor: %w", err)
	}

	p.transition(Transition{Chart: ev.Request.Name, Seq: ev.Seq, State: Archiving})
	ev, err = p.archiver.Process(ctx, ev)
	if err != nil {
		return ev, fmt.Errorf("archive: %w", err)
	}
	return ev, nil
}

// deploy runs the deploy sequence while holding the chart's run lock.
func (p *Pipeline) deploy(ctx context.Context, ev chart.BuildEvent) error {
	mu := p.lock(ev.Request.Name)
	mu.Lock()
	defer mu.Unlock()

	p.transition(Transition{Chart: ev.Request.Name, Seq: ev.Seq, State: Deploying})
	if err := p.deployer.Deploy(ctx, ev); err != nil {
		return fmt.Errorf("deploy: %w", err)
	}
	return nil
}

func (p *Pipeline) lock(name string) *sync.Mutex {
	p.locksMu.Lock()
	defer p.locksMu.Unlock()

	mu, ok := p.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		p.locks[name] = mu
	}
	return mu
}

func (p *Pipeline) transition(t Transition) {
	p.logger.Debug("transition", "chart", t.Chart, "seq", t.Seq, "state", t.State)
	if p.onState != nil {
		p.onState(t)
	}
}
