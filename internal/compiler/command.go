package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// CommandCompiler runs an external build tool such as webpack or rollup.
type CommandCompiler struct {
	opts Options
}

// NewCommandCompiler creates a command compiler. opts.Command must name the
// program and its arguments.
func NewCommandCompiler(opts Options) (*CommandCompiler, error) {
	if len(opts.Command) == 0 || strings.TrimSpace(opts.Command[0]) == "" {
		return nil, fmt.Errorf("command compiler requires a command")
	}
	return &CommandCompiler{opts: opts}, nil
}

// Name returns the compiler kind.
func (c *CommandCompiler) Name() string {
	return "command"
}

// Args expands the command placeholders for target.
func (c *CommandCompiler) Args(target Target) []string {
	replacer := strings.NewReplacer(
		"{entry}", target.Entry,
		"{outfile}", target.Outfile,
		"{outdir}", filepath.Dir(target.Outfile),
		"{name}", target.Name,
		"{srcdir}", target.SourceDir,
	)

	args := make([]string, len(c.opts.Command))
	for i, arg := range c.opts.Command {
		args[i] = replacer.Replace(arg)
	}
	return args
}

// Build runs the command once.
func (c *CommandCompiler) Build(ctx context.Context, target Target) (Report, error) {
	if err := os.MkdirAll(filepath.Dir(target.Outfile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	args := c.Args(target)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	report := &commandReport{
		command: strings.Join(args, " "),
		output:  output.String(),
		elapsed: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		if _, statErr := os.Stat(target.Outfile); statErr != nil {
			report.missing = target.Outfile
		}
	case errors.As(err, &exitErr):
		report.exitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("failed to run %s: %w", args[0], err)
	}

	return report, nil
}

// Watch runs the command, then reruns it after every debounced change below
// target.SourceDir.
func (c *CommandCompiler) Watch(ctx context.Context, target Target, onBuild func(Report)) error {
	logger := c.opts.logger()

	watcher, err := NewSourceWatcher(target.SourceDir, c.opts.Debounce)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	go watcher.Run(ctx)

	build := func() error {
		report, err := c.Build(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ctx.Err() == nil {
			onBuild(report)
		}
		return nil
	}

	if err := build(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-watcher.Changes():
			logger.Debug("sources changed", "paths", change.Paths)
			if err := build(); err != nil {
				return err
			}
		case err := <-watcher.Errors():
			logger.Warn("watcher error", "err", err)
		}
	}
}

type commandReport struct {
	command  string
	output   string
	elapsed  time.Duration
	exitCode int
	missing  string
}

func (r *commandReport) Failed() bool {
	return r.exitCode != 0 || r.missing != ""
}

func (r *commandReport) String() string {
	var b strings.Builder

	switch {
	case r.exitCode != 0:
		fmt.Fprintf(&b, "%s failed with exit code %d in %s", r.command, r.exitCode, r.elapsed.Round(time.Millisecond))
	case r.missing != "":
		fmt.Fprintf(&b, "%s did not write %s", r.command, r.missing)
	default:
		fmt.Fprintf(&b, "%s succeeded in %s", r.command, r.elapsed.Round(time.Millisecond))
	}

	if out := strings.TrimRight(r.output, "\n"); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

func init() {
	_ = Register("command", func(opts Options) (Compiler, error) {
		c, err := NewCommandCompiler(opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
