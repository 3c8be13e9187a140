package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/gorilla/mux"

	"github.com/dosanma1/chartpack/internal/config"
)

// execute runs the root command with fresh flag values in a temporary
// working directory prepared by setupWorkspace.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath = config.FileName
	envFilePath = config.DotEnvFile
	verbose = false
	buildWatch, buildDeploy, buildYes = false, false, false
	cleanAll, cleanYes = false, false
	newTitle, newAuthor, newForce, newDryRun = "", "", false, false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)

	src := filepath.Join(dir, "chart", "widget-chart")
	assert.NoError(t, os.MkdirAll(src, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(src, "format.js"),
		[]byte("export const format = (v) => `${v}%`;\n"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(src, "index.js"),
		[]byte("import { format } from './format.js';\nconsole.log(format(42));\n"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(src, "index.qext"),
		[]byte(`{"name": "Widget chart", "type": "visualization", "version": "1.0.0"}`), 0o644))
	return dir
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	assert.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			names = append(names, filepath.ToSlash(f.Name))
		}
	}
	sort.Strings(names)
	return names
}

func TestBuild(t *testing.T) {
	t.Run("missing chart name", func(t *testing.T) {
		dir := setupWorkspace(t)

		_, err := execute(t, "build")
		assert.EqualError(t, err, "Chart must be specified")

		_, statErr := os.Stat(filepath.Join(dir, "dist"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("unknown chart", func(t *testing.T) {
		setupWorkspace(t)

		_, err := execute(t, "build", "other-chart")
		assert.EqualError(t, err, "directory doesn't exist")
	})

	t.Run("builds and packages widget-chart", func(t *testing.T) {
		dir := setupWorkspace(t)

		out, err := execute(t, "build", "widget-chart")
		assert.NoError(t, err)
		assert.Contains(t, out, "widget-chart#1 ready")

		assert.Equal(t,
			[]string{"widget-chart.js", "widget-chart.qext"},
			zipNames(t, filepath.Join(dir, "dist", "widget-chart.zip")))
	})

	t.Run("rebuild drops earlier source maps", func(t *testing.T) {
		dir := setupWorkspace(t)

		t.Setenv("CHARTPACK_COMPILER_SOURCEMAP", "true")
		_, err := execute(t, "build", "widget-chart")
		assert.NoError(t, err)
		assert.Equal(t,
			[]string{"widget-chart.js", "widget-chart.js.map", "widget-chart.qext"},
			zipNames(t, filepath.Join(dir, "dist", "widget-chart.zip")))

		t.Setenv("CHARTPACK_COMPILER_SOURCEMAP", "false")
		_, err = execute(t, "build", "widget-chart")
		assert.NoError(t, err)
		assert.Equal(t,
			[]string{"widget-chart.js", "widget-chart.qext"},
			zipNames(t, filepath.Join(dir, "dist", "widget-chart.zip")))
	})

	t.Run("deploy requires a base url", func(t *testing.T) {
		setupWorkspace(t)

		_, err := execute(t, "build", "widget-chart", "--deploy", "--yes")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "remote.base_url is required")
	})

	t.Run("reports a refused delete", func(t *testing.T) {
		setupWorkspace(t)

		var uploads int
		r := mux.NewRouter()
		r.HandleFunc("/hdr/qrs/extension/name/{name}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}).Methods(http.MethodDelete)
		r.HandleFunc("/hdr/qrs/extension/upload", func(w http.ResponseWriter, r *http.Request) {
			uploads++
			w.WriteHeader(http.StatusCreated)
		}).Methods(http.MethodPost)
		srv := httptest.NewServer(r)
		defer srv.Close()

		t.Setenv("CHARTPACK_REMOTE_BASE_URL", srv.URL)

		out, err := execute(t, "build", "widget-chart", "--deploy", "--yes")
		assert.Error(t, err)
		assert.Contains(t, out, "widget-chart stalled: delete rejected with 403")
		assert.Contains(t, out, "Check remote.user")
		assert.Equal(t, 0, uploads)
	})

	t.Run("deploys widget-chart", func(t *testing.T) {
		dir := setupWorkspace(t)

		var (
			mu    sync.Mutex
			calls []string
			size  int64
		)
		r := mux.NewRouter()
		r.HandleFunc("/hdr/qrs/extension/name/{name}", func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls = append(calls, "delete "+mux.Vars(r)["name"])
			mu.Unlock()
			w.WriteHeader(http.StatusNotFound)
		}).Methods(http.MethodDelete)
		r.HandleFunc("/hdr/qrs/extension/upload", func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls = append(calls, "upload")
			size = r.ContentLength
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		}).Methods(http.MethodPost)
		srv := httptest.NewServer(r)
		defer srv.Close()

		t.Setenv("CHARTPACK_REMOTE_BASE_URL", srv.URL)
		t.Setenv("CHARTPACK_REMOTE_USER", "UserDirectory=internal;UserId=sa_repository")

		_, err := execute(t, "build", "widget-chart", "--deploy", "--yes")
		assert.NoError(t, err)

		info, err := os.Stat(filepath.Join(dir, "dist", "widget-chart.zip"))
		assert.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"delete widget-chart", "upload"}, calls)
		assert.Equal(t, info.Size(), size)
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid descriptor", func(t *testing.T) {
		setupWorkspace(t)

		out, err := execute(t, "validate", "widget-chart")
		assert.NoError(t, err)
		assert.Contains(t, out, "is valid")
	})

	t.Run("invalid descriptor", func(t *testing.T) {
		dir := setupWorkspace(t)
		assert.NoError(t, os.WriteFile(filepath.Join(dir, "chart", "widget-chart", "index.qext"),
			[]byte(`{"name": "Widget chart"}`), 0o644))

		out, err := execute(t, "validate", "widget-chart")
		assert.EqualError(t, err, "validation failed with 1 errors")
		assert.Contains(t, out, "type")
	})
}

func TestClean(t *testing.T) {
	dir := setupWorkspace(t)

	_, err := execute(t, "build", "widget-chart")
	assert.NoError(t, err)

	_, err = execute(t, "clean", "widget-chart")
	assert.NoError(t, err)

	for _, path := range []string{
		filepath.Join(dir, "dist", "widget-chart"),
		filepath.Join(dir, "dist", "widget-chart.zip"),
	} {
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "%s still exists", path)
	}

	_, err = execute(t, "clean")
	assert.EqualError(t, err, "Chart must be specified")

	_, err = execute(t, "clean", "--all", "--yes")
	assert.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "dist"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	out, err := execute(t, "new", "bar-chart", "--title", "Bar")
	assert.NoError(t, err)
	assert.Contains(t, out, "Created")

	saved, err := config.Load(filepath.Join(dir, config.FileName), nil)
	assert.NoError(t, err)
	assert.Equal(t, config.Default(), saved)

	_, err = execute(t, "new", "pie-chart", "--dry-run")
	assert.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "chart", "pie-chart"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = execute(t, "new", "bar-chart")
	assert.Error(t, err)

	_, err = execute(t, "build", "bar-chart")
	assert.NoError(t, err)
	assert.Equal(t,
		[]string{"bar-chart.js", "bar-chart.qext"},
		zipNames(t, filepath.Join(dir, "dist", "bar-chart.zip")))
}

// chdir changes the working directory to dir and restores the previous one
// when the test finishes (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	assert.NoError(t, err)
	assert.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
