package deployer_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/gorilla/mux"

	"github.com/dosanma1/chartpack/internal/chart"
	"github.com/dosanma1/chartpack/internal/deployer"
)

type call struct {
	Method  string
	Path    string
	Xrfkey  string
	Header  http.Header
	BodyLen int
	Length  int64
}

// fakeQRS records every request it receives.
type fakeQRS struct {
	mu           sync.Mutex
	calls        []call
	deleteStatus int
	uploadStatus int
}

func (f *fakeQRS) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{
		Method:  r.Method,
		Path:    r.URL.Path,
		Xrfkey:  r.URL.Query().Get("Xrfkey"),
		Header:  r.Header.Clone(),
		BodyLen: len(body),
		Length:  r.ContentLength,
	})
}

func (f *fakeQRS) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// lockedBuffer is written by the transport while the test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newFakeQRS(t *testing.T, deleteStatus, uploadStatus int) (*fakeQRS, *httptest.Server) {
	t.Helper()
	f := &fakeQRS{deleteStatus: deleteStatus, uploadStatus: uploadStatus}

	r := mux.NewRouter()
	r.HandleFunc("/{prefix}/qrs/extension/name/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.WriteHeader(f.deleteStatus)
	}).Methods(http.MethodDelete)
	r.HandleFunc("/{prefix}/qrs/extension/upload", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.uploadStatus)
		_, _ = w.Write([]byte(`[{"name":"widget-chart"}]`))
	}).Methods(http.MethodPost)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func setup(t *testing.T, baseURL string) (*deployer.QRSDeployer, chart.BuildEvent, []byte) {
	t.Helper()
	root := t.TempDir()
	layout := chart.Layout{
		SourceRoot:     filepath.Join(root, "chart"),
		OutputRoot:     filepath.Join(root, "dist"),
		EntryFile:      "index.js",
		DescriptorFile: "index.qext",
	}
	archive := bytes.Repeat([]byte("PK-archive-"), 512)
	assert.NoError(t, os.MkdirAll(layout.OutputRoot, 0o755))
	assert.NoError(t, os.WriteFile(layout.ArchivePath("widget-chart"), archive, 0o644))

	cfg := deployer.Config{
		BaseURL: baseURL,
		Prefix:  "hdr",
		User:    "deployer",
		Xrfkey:  "abcdefghij123456",
		Timeout: 5 * time.Second,
	}
	ev := chart.BuildEvent{Request: chart.NewBuildRequest("widget-chart", false, true), Seq: 1}
	return deployer.NewQRSDeployer(cfg, layout, nil), ev, archive
}

func TestQRSDeployer(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes before upload", func(t *testing.T) {
		f, srv := newFakeQRS(t, http.StatusNoContent, http.StatusCreated)
		d, ev, archive := setup(t, srv.URL)

		assert.NoError(t, d.Deploy(ctx, ev))

		calls := f.Calls()
		assert.Equal(t, 2, len(calls))
		assert.Equal(t, http.MethodDelete, calls[0].Method)
		assert.Equal(t, "/hdr/qrs/extension/name/widget-chart", calls[0].Path)
		assert.Equal(t, http.MethodPost, calls[1].Method)
		assert.Equal(t, "/hdr/qrs/extension/upload", calls[1].Path)
		assert.Equal(t, len(archive), calls[1].BodyLen)
		assert.Equal(t, int64(len(archive)), calls[1].Length)
	})

	t.Run("sends session headers", func(t *testing.T) {
		f, srv := newFakeQRS(t, http.StatusOK, http.StatusOK)
		d, ev, _ := setup(t, srv.URL)

		assert.NoError(t, d.Deploy(ctx, ev))

		for _, c := range f.Calls() {
			assert.Equal(t, "abcdefghij123456", c.Xrfkey)
			assert.Equal(t, "abcdefghij123456", c.Header.Get("X-Qlik-Xrfkey"))
			assert.Equal(t, "deployer", c.Header.Get("Hdr-Usr"))
			assert.Equal(t, "application/zip", c.Header.Get("Content-Type"))
			assert.Equal(t, "no-cache", c.Header.Get("Cache-Control"))
		}
	})

	t.Run("missing extension still uploads", func(t *testing.T) {
		f, srv := newFakeQRS(t, http.StatusNotFound, http.StatusCreated)
		d, ev, _ := setup(t, srv.URL)

		assert.NoError(t, d.Deploy(ctx, ev))
		assert.Equal(t, 2, len(f.Calls()))
	})

	t.Run("failed delete blocks upload", func(t *testing.T) {
		f, srv := newFakeQRS(t, http.StatusInternalServerError, http.StatusCreated)
		d, ev, _ := setup(t, srv.URL)

		err := d.Deploy(ctx, ev)
		assert.Error(t, err)
		assert.True(t, deployer.IsStatus(err, http.StatusInternalServerError))
		assert.Equal(t, "delete rejected with 500", deployer.Describe(err))

		calls := f.Calls()
		assert.Equal(t, 1, len(calls))
		assert.Equal(t, http.MethodDelete, calls[0].Method)
	})

	t.Run("rejected upload is an error", func(t *testing.T) {
		_, srv := newFakeQRS(t, http.StatusNoContent, http.StatusForbidden)
		d, ev, _ := setup(t, srv.URL)

		err := d.Deploy(ctx, ev)
		assert.True(t, deployer.IsStatus(err, http.StatusForbidden))
	})

	t.Run("missing archive does not upload", func(t *testing.T) {
		f, srv := newFakeQRS(t, http.StatusNoContent, http.StatusCreated)
		d, _, _ := setup(t, srv.URL)
		ev := chart.BuildEvent{Request: chart.NewBuildRequest("other-chart", false, true), Seq: 1}

		err := d.Deploy(ctx, ev)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read archive")
		assert.Equal(t, 1, len(f.Calls()))
	})

	t.Run("reports upload progress", func(t *testing.T) {
		f, srv := newFakeQRS(t, http.StatusOK, http.StatusCreated)
		d, ev, _ := setup(t, srv.URL)
		progress := &lockedBuffer{}
		d.Progress = progress

		assert.NoError(t, d.Deploy(ctx, ev))
		assert.Equal(t, 2, len(f.Calls()))
		assert.Contains(t, progress.String(), "widget-chart")
	})
}

func TestSession(t *testing.T) {
	t.Run("each session is distinct", func(t *testing.T) {
		cfg := deployer.Config{BaseURL: "http://localhost:4242"}
		a, err := deployer.NewSession(cfg)
		assert.NoError(t, err)
		defer a.Close()
		b, err := deployer.NewSession(cfg)
		assert.NoError(t, err)
		defer b.Close()

		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects non http base url", func(t *testing.T) {
		_, err := deployer.NewSession(deployer.Config{BaseURL: "ftp://example.com"})
		assert.Error(t, err)
	})

	t.Run("generates xrfkey when unset", func(t *testing.T) {
		keys := make(chan string, 2)
		r := mux.NewRouter()
		r.HandleFunc("/qrs/extension/name/{name}", func(w http.ResponseWriter, r *http.Request) {
			keys <- r.URL.Query().Get("Xrfkey")
			keys <- r.Header.Get("X-Qlik-Xrfkey")
			w.WriteHeader(http.StatusNotFound)
		}).Methods(http.MethodDelete)
		srv := httptest.NewServer(r)
		defer srv.Close()

		s, err := deployer.NewSession(deployer.Config{BaseURL: srv.URL})
		assert.NoError(t, err)
		defer s.Close()

		res, err := s.Delete(context.Background(), "widget-chart")
		assert.NoError(t, err)
		assert.True(t, res.NotFound)

		query, header := <-keys, <-keys
		assert.Equal(t, deployer.XrfkeyLength, len(query))
		assert.Equal(t, query, header)
	})
}

func TestNewXrfkey(t *testing.T) {
	key, err := deployer.NewXrfkey()
	assert.NoError(t, err)
	assert.Equal(t, deployer.XrfkeyLength, len(key))
	for _, r := range key {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		assert.True(t, ok, "unexpected rune %q", r)
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"qrs"}, deployer.ListDeployers())

	d, err := deployer.GetDeployer("qrs", deployer.Config{}, chart.DefaultLayout(), nil)
	assert.NoError(t, err)
	assert.Equal(t, "qrs", d.Name())

	_, err = deployer.GetDeployer("helm", deployer.Config{}, chart.DefaultLayout(), nil)
	assert.EqualError(t, err, "unknown deployer: helm (available: qrs)")
}
