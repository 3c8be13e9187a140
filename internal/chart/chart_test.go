package chart_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/dosanma1/chartpack/internal/chart"
)

func TestLayoutPaths(t *testing.T) {
	l := chart.DefaultLayout()

	assert.Equal(t, filepath.Join("chart", "widget-chart"), l.SourceDir("widget-chart"))
	assert.Equal(t, filepath.Join("chart", "widget-chart", "index.js"), l.EntryPath("widget-chart"))
	assert.Equal(t, filepath.Join("chart", "widget-chart", "index.qext"), l.DescriptorPath("widget-chart"))
	assert.Equal(t, filepath.Join("dist", "widget-chart", "widget-chart.js"), l.BundlePath("widget-chart"))
	assert.Equal(t, filepath.Join("dist", "widget-chart", "widget-chart.qext"), l.DescriptorOutputPath("widget-chart"))
	assert.Equal(t, filepath.Join("dist", "widget-chart.zip"), l.ArchivePath("widget-chart"))
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	l := chart.Layout{
		SourceRoot:     filepath.Join(root, "chart"),
		OutputRoot:     filepath.Join(root, "dist"),
		EntryFile:      "index.js",
		DescriptorFile: "index.qext",
	}
	assert.NoError(t, os.MkdirAll(l.SourceDir("present"), 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(l.SourceRoot, "file"), []byte("x"), 0o644))

	t.Run("missing name", func(t *testing.T) {
		err := l.Validate(chart.NewBuildRequest("  ", false, false))
		assert.IsError(t, err, chart.ErrChartNotSpecified)
		assert.EqualError(t, err, "Chart must be specified")
	})

	t.Run("missing directory", func(t *testing.T) {
		err := l.Validate(chart.NewBuildRequest("absent", false, true))
		assert.IsError(t, err, chart.ErrChartNotFound)
		assert.EqualError(t, err, "directory doesn't exist")
	})

	t.Run("not a directory", func(t *testing.T) {
		err := l.Validate(chart.NewBuildRequest("file", false, false))
		assert.IsError(t, err, chart.ErrChartNotFound)
	})

	t.Run("path escape", func(t *testing.T) {
		err := l.Validate(chart.NewBuildRequest("../present", false, false))
		assert.IsError(t, err, chart.ErrInvalidChartName)
	})

	t.Run("present", func(t *testing.T) {
		assert.NoError(t, l.Validate(chart.NewBuildRequest("present", true, true)))
	})
}

func TestBuildRequestMode(t *testing.T) {
	assert.Equal(t, "once", chart.NewBuildRequest("a", false, false).Mode())
	assert.Equal(t, "watch+deploy", chart.NewBuildRequest("a", true, true).Mode())
}
