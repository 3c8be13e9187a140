// Package archive zips a chart's output directory into the distributable
// extension archive.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/mholt/archiver"

	"github.com/dosanma1/chartpack/internal/chart"
	"github.com/dosanma1/chartpack/pkg/xos"
)

// Archiver writes dist/<name>.zip from the contents of dist/<name>/.
type Archiver struct {
	layout chart.Layout
	logger *slog.Logger
}

// NewArchiver creates an archiver.
func NewArchiver(layout chart.Layout, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		layout: layout,
		logger: logger.With("component", "archive"),
	}
}

// Archive zips the output directory of ev's chart and passes ev through
// unchanged. A previous archive is replaced atomically.
func (a *Archiver) Archive(ctx context.Context, ev chart.BuildEvent) (chart.BuildEvent, error) {
	if err := ctx.Err(); err != nil {
		return ev, err
	}

	name := ev.Request.Name
	dir := a.layout.OutputDir(name)
	dest := a.layout.ArchivePath(name)

	entries, err := Entries(dir)
	if err != nil {
		return ev, err
	}

	if err := xos.WriteFunc(dest, 0644, func(w io.Writer) error {
		return archiver.Zip.Write(w, entries)
	}); err != nil {
		return ev, fmt.Errorf("failed to write archive %s: %w", dest, err)
	}

	if info, err := os.Stat(dest); err == nil {
		a.logger.Debug("archived", "chart", name, "path", dest, "bytes", info.Size())
	}
	return ev, nil
}

// Entries returns the top-level entries of dir so that they land at the
// root of the archive rather than below a directory named after the chart.
func Entries(dir string) ([]string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("output directory %s is empty", dir)
	}

	entries := make([]string, 0, len(items))
	for _, item := range items {
		entries = append(entries, filepath.Join(dir, item.Name()))
	}
	sort.Strings(entries)
	return entries, nil
}
