package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/config"
	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
	"github.com/atlasgrid/geopipe/internal/pipeline"
	"github.com/atlasgrid/geopipe/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "geopipe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 0, AllowedOrigins: []string{"*"}},
		Defaults: config.DefaultsConfig{
			CRS:       "EPSG:4326",
			LonColumn: "lon",
			LatColumn: "lat",
		},
	}
	return New(cfg, st), st
}

func seedStations(t *testing.T, st store.Store, id crs.ID, x, y float64) {
	t.Helper()
	c := feature.NewCollection(id)
	c.Features = append(c.Features, feature.Feature{
		Geometry: geom.NewPointFlat(geom.XY, []float64{x, y}),
		Attrs:    map[string]any{"name": "A1"},
	})
	require.NoError(t, st.SaveCollection(context.Background(), "stations", c))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListCollections(t *testing.T) {
	srv, st := newTestServer(t)
	seedStations(t, st, crs.WGS84, 121.5, 25.0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []store.CollectionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "stations", infos[0].Name)
	assert.Equal(t, 1, infos[0].Features)
}

func TestGetCollectionGeoJSON(t *testing.T) {
	srv, st := newTestServer(t)
	seedStations(t, st, crs.WGS84, 121.5, 25.0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections/stations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	require.Len(t, fc.Features, 1)
	pt, ok := fc.Features[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 121.5, pt.X())
	assert.Equal(t, 25.0, pt.Y())
}

// Projected collections come back in WGS84 so browser map clients can draw
// them without knowing the storage CRS.
func TestGetCollectionReprojects(t *testing.T) {
	srv, st := newTestServer(t)
	seedStations(t, st, crs.TWD97, 250000, 2765000)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections/stations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	require.Len(t, fc.Features, 1)
	pt, ok := fc.Features[0].Geometry.(*geom.Point)
	require.True(t, ok)
	// x = 250000 sits on the TWD97 central meridian at 121E.
	assert.InDelta(t, 121.0, pt.X(), 1e-6)
	assert.InDelta(t, 25.0, pt.Y(), 0.01)
}

func TestGetCollectionNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCollection(t *testing.T) {
	srv, st := newTestServer(t)
	seedStations(t, st, crs.WGS84, 121.5, 25.0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/collections/stations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/collections/stations", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Submitted jobs each get their own runner, so two jobs running at once
// must not see each other's datasets or corrupt shared state.
func TestConcurrentJobsStayIsolated(t *testing.T) {
	srv, st := newTestServer(t)
	dir := t.TempDir()

	csvA := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(csvA,
		[]byte("name,lon,lat\nA1,121.5,25.0\nA2,121.6,25.1\n"), 0o644))
	csvB := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(csvB,
		[]byte("name,lon,lat\nB1,120.0,23.0\n"), 0o644))

	jobA := &pipeline.Job{
		Name:    "job-a",
		Sources: []pipeline.Source{{Name: "points", Kind: pipeline.SourceCSV, Path: csvA}},
		Outputs: []pipeline.Output{{Source: "points", Kind: "store", Name: "points_a"}},
	}
	jobB := &pipeline.Job{
		Name:    "job-b",
		Sources: []pipeline.Source{{Name: "points", Kind: pipeline.SourceCSV, Path: csvB}},
		Outputs: []pipeline.Output{{Source: "points", Kind: "store", Name: "points_b"}},
	}

	var wg sync.WaitGroup
	for _, job := range []*pipeline.Job{jobA, jobB} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.runJob(job)
		}()
	}
	wg.Wait()

	a, err := st.LoadCollection(context.Background(), "points_a")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, "A1", a.Features[0].Attrs["name"])

	b, err := st.LoadCollection(context.Background(), "points_b")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, "B1", b.Features[0].Attrs["name"])
}

func TestSubmitJobBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"path":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"path":"/nonexistent/job.yaml"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
