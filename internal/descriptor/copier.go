// Package descriptor copies and validates the chart's sidecar descriptor
// (index.qext) that ships next to the compiled bundle.
package descriptor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	copier "github.com/otiai10/copy"

	"github.com/dosanma1/chartpack/internal/chart"
)

// Copier copies chart/<name>/index.qext to dist/<name>/<name>.qext.
type Copier struct {
	layout   chart.Layout
	validate bool
	logger   *slog.Logger
}

// NewCopier creates a copier. When validate is set the descriptor is checked
// against the schema before it is copied.
func NewCopier(layout chart.Layout, validate bool, logger *slog.Logger) *Copier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Copier{
		layout:   layout,
		validate: validate,
		logger:   logger.With("component", "descriptor"),
	}
}

// Copy copies the descriptor for ev's chart and passes ev through unchanged.
func (c *Copier) Copy(ctx context.Context, ev chart.BuildEvent) (chart.BuildEvent, error) {
	if err := ctx.Err(); err != nil {
		return ev, err
	}

	name := ev.Request.Name
	src := c.layout.DescriptorPath(name)
	dst := c.layout.DescriptorOutputPath(name)

	info, err := os.Stat(src)
	if err != nil {
		return ev, fmt.Errorf("failed to read descriptor: %w", err)
	}
	if info.IsDir() {
		return ev, fmt.Errorf("descriptor %s is a directory", src)
	}

	if c.validate {
		if err := Validate(src); err != nil {
			return ev, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return ev, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := copier.Copy(src, dst, copier.Options{Sync: true}); err != nil {
		return ev, fmt.Errorf("failed to copy descriptor: %w", err)
	}

	c.logger.Debug("copied descriptor", "chart", name, "src", src, "dst", dst)
	return ev, nil
}
