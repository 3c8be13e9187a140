package xos_test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/dosanma1/chartpack/pkg/xos"
)

func TestWriteFunc(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")

	err := xos.WriteFunc(path, 0o644, func(w io.Writer) error {
		_, err := fmt.Fprint(w, "first")
		return err
	})
	assert.NoError(t, err)

	err = xos.WriteFunc(path, 0o644, func(w io.Writer) error {
		_, _ = fmt.Fprint(w, "partial")
		return errors.New("interrupted")
	})
	assert.EqualError(t, err, "interrupted")

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "first", string(data))

	assert.NoError(t, xos.WriteFile(path, []byte("second"), 0o644))
	data, err = os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
