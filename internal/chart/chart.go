// Package chart defines the build request, build events and the on-disk layout
// of a chart extension.
package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrChartNotSpecified is returned when no chart name was given.
	ErrChartNotSpecified = errors.New("Chart must be specified")
	// ErrChartNotFound is returned when the chart source directory is missing.
	ErrChartNotFound = errors.New("directory doesn't exist")
	// ErrInvalidChartName is returned for names that would escape the source root.
	ErrInvalidChartName = errors.New("invalid chart name")
)

// BuildRequest describes one invocation of the pipeline.
type BuildRequest struct {
	Name   string
	Watch  bool
	Deploy bool
}

// NewBuildRequest creates a request for the named chart.
func NewBuildRequest(name string, watch, deploy bool) BuildRequest {
	return BuildRequest{
		Name:   strings.TrimSpace(name),
		Watch:  watch,
		Deploy: deploy,
	}
}

// Mode returns a short human readable description of the request flags.
func (r BuildRequest) Mode() string {
	mode := "once"
	if r.Watch {
		mode = "watch"
	}
	if r.Deploy {
		mode += "+deploy"
	}
	return mode
}

// BuildEvent is produced for every successful compilation.
type BuildEvent struct {
	Request BuildRequest
	// Seq is the 1-based build number within the invocation.
	Seq uint64
	// Report is the compiler's loggable build report.
	Report string
}

func (e BuildEvent) String() string {
	return fmt.Sprintf("%s#%d", e.Request.Name, e.Seq)
}

// Layout maps chart names onto source and output paths.
type Layout struct {
	SourceRoot     string
	OutputRoot     string
	EntryFile      string
	DescriptorFile string
}

// DefaultLayout returns the conventional chart/ → dist/ layout.
func DefaultLayout() Layout {
	return Layout{
		SourceRoot:     "chart",
		OutputRoot:     "dist",
		EntryFile:      "index.js",
		DescriptorFile: "index.qext",
	}
}

// SourceDir returns chart/<name>.
func (l Layout) SourceDir(name string) string {
	return filepath.Join(l.SourceRoot, name)
}

// EntryPath returns chart/<name>/index.js.
func (l Layout) EntryPath(name string) string {
	return filepath.Join(l.SourceDir(name), l.EntryFile)
}

// DescriptorPath returns chart/<name>/index.qext.
func (l Layout) DescriptorPath(name string) string {
	return filepath.Join(l.SourceDir(name), l.DescriptorFile)
}

// OutputDir returns dist/<name>.
func (l Layout) OutputDir(name string) string {
	return filepath.Join(l.OutputRoot, name)
}

// BundlePath returns dist/<name>/<name>.js.
func (l Layout) BundlePath(name string) string {
	return filepath.Join(l.OutputDir(name), name+".js")
}

// DescriptorOutputPath returns dist/<name>/<name>.qext.
func (l Layout) DescriptorOutputPath(name string) string {
	return filepath.Join(l.OutputDir(name), name+filepath.Ext(l.DescriptorFile))
}

// ArchivePath returns dist/<name>.zip.
func (l Layout) ArchivePath(name string) string {
	return filepath.Join(l.OutputRoot, name+".zip")
}

// Validate checks that the request names an existing chart source directory.
func (l Layout) Validate(req BuildRequest) error {
	if req.Name == "" {
		return ErrChartNotSpecified
	}
	if err := CheckName(req.Name); err != nil {
		return err
	}

	info, err := os.Stat(l.SourceDir(req.Name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrChartNotFound
		}
		return fmt.Errorf("failed to stat chart directory: %w", err)
	}
	if !info.IsDir() {
		return ErrChartNotFound
	}
	return nil
}

// CheckName rejects names that are not a single path element.
func CheckName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidChartName, name)
	}
	return nil
}
