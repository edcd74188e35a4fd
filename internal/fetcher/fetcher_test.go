package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestOpen_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crimes.csv")
	require.NoError(t, writeTestFile(path, "AREA\n1\n"))

	o := NewOpener(Options{})
	rc, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "AREA\n1\n", readAll(t, rc))
}

func TestOpen_FileScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crimes.csv")
	require.NoError(t, writeTestFile(path, "AREA\n"))

	rc, err := NewOpener(Options{}).Open(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "AREA\n", readAll(t, rc))
}

func TestOpen_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote")) //nolint:errcheck
	}))
	defer srv.Close()

	rc, err := NewOpener(Options{Timeout: 5 * time.Second}).Open(context.Background(), srv.URL+"/crimes.csv")
	require.NoError(t, err)
	assert.Equal(t, "remote", readAll(t, rc))
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := NewOpener(Options{}).Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetcher: open")
}

func TestOpen_EmptySource(t *testing.T) {
	_, err := NewOpener(Options{}).Open(context.Background(), "")
	require.Error(t, err)
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "https", scheme("HTTPS://example.com/a.csv"))
	assert.Equal(t, "ftp", scheme("ftp://example.com/a.csv"))
	assert.Equal(t, "", scheme("data/a.csv"))
}
