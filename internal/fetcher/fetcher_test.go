package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestForURL(t *testing.T) {
	httpF := NewHTTPFetcher(HTTPOptions{})
	ftpF := &FTPFetcher{}

	f, err := ForURL("https://data.example.com/stations.zip", httpF, ftpF)
	require.NoError(t, err)
	assert.Same(t, httpF, f)

	f, err = ForURL("ftp://ftp.example.com/pub/grid.asc", httpF, ftpF)
	require.NoError(t, err)
	assert.Same(t, ftpF, f)

	_, err = ForURL("gopher://example.com/x", httpF, ftpF)
	require.Error(t, err)
}

func TestHTTPDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geopipe-test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{UserAgent: "geopipe-test/1.0"})
	rc, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestHTTPDownloadRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{})
	rc, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPDownloadNotFoundNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{})
	_, err := f.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("grid data"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "grid.asc")
	n, err := DownloadToFile(context.Background(), NewHTTPFetcher(HTTPOptions{}), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "grid data", string(data))
}

// writeZip builds a small archive with nested entry paths, the shape most
// zipped shapefile bundles come in.
func writeZip(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"bundle/stations.shp": "shp bytes",
		"bundle/stations.dbf": "dbf bytes",
		"readme.txt":          "docs",
	} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "bundle.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExtractZIPFlattens(t *testing.T) {
	zipPath := writeZip(t)
	dest := filepath.Join(t.TempDir(), "extracted")

	require.NoError(t, ExtractZIP(zipPath, dest))

	data, err := os.ReadFile(filepath.Join(dest, "stations.shp"))
	require.NoError(t, err)
	assert.Equal(t, "shp bytes", string(data))

	for _, name := range []string{"stations.dbf", "readme.txt"} {
		_, err := os.Stat(filepath.Join(dest, name))
		assert.NoError(t, err, name)
	}
}

func TestFindByExt(t *testing.T) {
	zipPath := writeZip(t)
	dest := filepath.Join(t.TempDir(), "extracted")
	require.NoError(t, ExtractZIP(zipPath, dest))

	path, err := FindByExt(dest, ".shp")
	require.NoError(t, err)
	assert.Equal(t, "stations.shp", filepath.Base(path))

	_, err = FindByExt(dest, ".asc")
	require.Error(t, err)
}
