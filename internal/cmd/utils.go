package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dosanma1/chartpack/internal/config"
	"github.com/dosanma1/chartpack/internal/deployer"
	"github.com/dosanma1/chartpack/internal/pipeline"
	"github.com/dosanma1/chartpack/internal/ui"
)

// newLogger builds the diagnostics logger. Debug level with --verbose.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the configuration file with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnvironment(configPath, envFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", configPath, err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// chartArg returns the chart name argument, or "" when none was given.
func chartArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// stateReporter renders pipeline transitions as status lines.
func stateReporter(w io.Writer) func(pipeline.Transition) {
	var mu sync.Mutex
	return func(t pipeline.Transition) {
		mu.Lock()
		defer mu.Unlock()

		switch t.State {
		case pipeline.Compiling:
			ui.Step(w, ui.IconTool, "Compiling %s...", t.Chart)
		case pipeline.CopyingDescriptor:
			ui.Step(w, ui.IconTool, "Copying descriptor (%s)", t)
		case pipeline.Archiving:
			ui.Step(w, ui.IconPackage, "Archiving (%s)", t)
		case pipeline.Deploying:
			ui.Step(w, ui.IconRocket, "Deploying (%s)", t)
		case pipeline.Done:
			ui.Success(w, "%s#%d ready", t.Chart, t.Seq)
		case pipeline.Stalled:
			ui.Error(w, "%s stalled: %s", t.Chart, deployer.Describe(t.Err))
			if deployer.IsStatus(t.Err, http.StatusUnauthorized) || deployer.IsStatus(t.Err, http.StatusForbidden) {
				ui.Hint(w, "Check remote.user, remote.user_header and the TLS client certificate")
			}
		}
	}
}
