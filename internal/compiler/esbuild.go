package compiler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
)

// ESBuildCompiler bundles charts in-process with esbuild.
type ESBuildCompiler struct {
	opts Options
}

// NewESBuildCompiler creates an esbuild compiler.
func NewESBuildCompiler(opts Options) *ESBuildCompiler {
	return &ESBuildCompiler{opts: opts}
}

// Name returns the compiler kind.
func (c *ESBuildCompiler) Name() string {
	return "esbuild"
}

// Build bundles the target once.
func (c *ESBuildCompiler) Build(ctx context.Context, target Target) (Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	bctx, ctxErr := api.Context(c.buildOptions(target))
	if ctxErr != nil {
		return c.report(target, ctxErr.Errors, nil, "", time.Since(start)), nil
	}
	defer bctx.Dispose()

	// Rebuild is not context aware; cancel the in-flight build instead.
	stop := context.AfterFunc(ctx, bctx.Cancel)
	defer stop()

	result := bctx.Rebuild()
	return c.report(target, result.Errors, result.Warnings, result.Metafile, time.Since(start)), nil
}

// Watch bundles the target and rebundles it whenever an input file changes.
func (c *ESBuildCompiler) Watch(ctx context.Context, target Target, onBuild func(Report)) error {
	var (
		mu      sync.Mutex
		started time.Time
	)

	plugin := api.Plugin{
		Name: "chartpack-report",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				mu.Lock()
				started = time.Now()
				mu.Unlock()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				mu.Lock()
				elapsed := time.Since(started)
				mu.Unlock()
				if ctx.Err() == nil {
					onBuild(c.report(target, result.Errors, result.Warnings, result.Metafile, elapsed))
				}
				return api.OnEndResult{}, nil
			})
		},
	}

	bctx, ctxErr := api.Context(c.buildOptions(target, plugin))
	if ctxErr != nil {
		return fmt.Errorf("failed to create esbuild context: %s", strings.Join(messageTexts(ctxErr.Errors), "; "))
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start esbuild watcher: %w", err)
	}
	c.opts.logger().Debug("esbuild watching", "entry", target.Entry)

	<-ctx.Done()
	return nil
}

func (c *ESBuildCompiler) buildOptions(target Target, plugins ...api.Plugin) api.BuildOptions {
	sourcemap := api.SourceMapNone
	if c.opts.Sourcemap {
		sourcemap = api.SourceMapLinked
	}

	return api.BuildOptions{
		EntryPoints:       []string{target.Entry},
		Outfile:           target.Outfile,
		Bundle:            true,
		Write:             true,
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2017,
		Sourcemap:         sourcemap,
		MinifyWhitespace:  c.opts.Minify,
		MinifyIdentifiers: c.opts.Minify,
		MinifySyntax:      c.opts.Minify,
		Plugins:           plugins,
	}
}

func (c *ESBuildCompiler) report(target Target, errs, warnings []api.Message, metafile string, elapsed time.Duration) *esbuildReport {
	r := &esbuildReport{
		entry:    target.Entry,
		outfile:  target.Outfile,
		elapsed:  elapsed,
		errors:   api.FormatMessages(errs, api.FormatMessagesOptions{Kind: api.ErrorMessage, Color: c.opts.Color}),
		warnings: api.FormatMessages(warnings, api.FormatMessagesOptions{Kind: api.WarningMessage, Color: c.opts.Color}),
	}
	if metafile != "" && len(errs) == 0 {
		r.analysis = api.AnalyzeMetafile(metafile, api.AnalyzeMetafileOptions{Color: c.opts.Color})
	}
	return r
}

type esbuildReport struct {
	entry    string
	outfile  string
	elapsed  time.Duration
	errors   []string
	warnings []string
	analysis string
}

func (r *esbuildReport) Failed() bool {
	return len(r.errors) > 0
}

func (r *esbuildReport) String() string {
	var b strings.Builder

	status := "succeeded"
	if r.Failed() {
		status = "failed"
	}
	fmt.Fprintf(&b, "%s -> %s %s in %s (%d errors, %d warnings)",
		r.entry, r.outfile, status, r.elapsed.Round(time.Millisecond), len(r.errors), len(r.warnings))

	for _, msg := range r.errors {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(msg, "\n"))
	}
	for _, msg := range r.warnings {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(msg, "\n"))
	}
	if r.analysis != "" {
		b.WriteString(strings.TrimRight(r.analysis, "\n"))
	}
	return b.String()
}

func messageTexts(msgs []api.Message) []string {
	texts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		texts = append(texts, msg.Text)
	}
	return texts
}

func init() {
	_ = Register("esbuild", func(opts Options) (Compiler, error) {
		return NewESBuildCompiler(opts), nil
	})
}
