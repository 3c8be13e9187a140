package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dosanma1/chartpack/internal/chart"
	"github.com/dosanma1/chartpack/internal/template"
	"github.com/dosanma1/chartpack/pkg/xos"
)

// ErrChartExists is returned when the chart directory is already present.
var ErrChartExists = errors.New("chart already exists")

// ChartGenerator creates chart/<name>/ with an entry module and descriptor.
type ChartGenerator struct {
	engine *template.Engine
	logger *slog.Logger
}

// NewChartGenerator creates a new chart generator.
func NewChartGenerator(logger *slog.Logger) *ChartGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartGenerator{
		engine: template.NewEngine(),
		logger: logger.With("component", "generator"),
	}
}

// Name returns the generator name.
func (g *ChartGenerator) Name() string {
	return "chart"
}

// Description returns the generator description.
func (g *ChartGenerator) Description() string {
	return "Scaffold a chart extension with an entry module and descriptor"
}

// Generate writes the chart scaffold.
func (g *ChartGenerator) Generate(ctx context.Context, opts GeneratorOptions) error {
	if opts.Name == "" {
		return chart.ErrChartNotSpecified
	}
	if err := chart.CheckName(opts.Name); err != nil {
		return err
	}

	dir := opts.Layout.SourceDir(opts.Name)
	if _, err := os.Stat(dir); err == nil && !opts.Force {
		return fmt.Errorf("%w: %s", ErrChartExists, dir)
	}

	data := map[string]any{
		"Name":        opts.Name,
		"Title":       template.Title(opts.Name),
		"Description": "",
		"Version":     "0.1.0",
		"Author":      "",
	}
	for k, v := range opts.Data {
		data[k] = v
	}

	files, err := g.engine.RenderDir("chart", data)
	if err != nil {
		return err
	}

	// The descriptor and entry names follow the configured layout.
	rename := map[string]string{
		"index.js":   opts.Layout.EntryFile,
		"index.qext": opts.Layout.DescriptorFile,
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := name
		if r, ok := rename[name]; ok && r != "" {
			target = r
		}
		path := filepath.Join(dir, filepath.FromSlash(target))

		if opts.DryRun {
			g.logger.Info("would create", "path", path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := xos.WriteFile(path, []byte(files[name]), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		g.logger.Debug("created", "path", path)
	}

	return nil
}

func init() {
	_ = Register(NewChartGenerator(nil))
}
