package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/config"
	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/vector"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testConfig() *config.Config {
	return &config.Config{
		Defaults: config.DefaultsConfig{
			CRS:       "EPSG:4326",
			LonColumn: "lon",
			LatColumn: "lat",
		},
	}
}

const stationsCSV = `name,lon,lat
A1,121.5,25.0
B2,121.0,24.0
C3,119.0,23.0
`

const districtsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[121.2, 24.5], [122.0, 24.5], [122.0, 25.5], [121.2, 25.5], [121.2, 24.5]]]
      },
      "properties": {"district": "North", "AnnualTemp": 22.3}
    }
  ]
}
`

const tempASC = `ncols 2
nrows 2
xllcorner 121
yllcorner 24
cellsize 1
nodata_value -9999
10 20
30 40
`

// writeFixtures lays out the three source files a full job needs and
// returns the directory.
func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"stations.csv":      stationsCSV,
		"districts.geojson": districtsGeoJSON,
		"temp.asc":          tempASC,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestRunFullJob(t *testing.T) {
	dir := writeFixtures(t)
	outPath := filepath.Join(dir, "out.geojson")

	jobYAML := `
name: warm-stations
crs: EPSG:4326
sources:
  - name: stations
    kind: csv
    path: ` + filepath.Join(dir, "stations.csv") + `
  - name: districts
    kind: geojson
    path: ` + filepath.Join(dir, "districts.geojson") + `
  - name: temp
    kind: ascii_grid
    path: ` + filepath.Join(dir, "temp.asc") + `
steps:
  - op: join
    left: stations
    right: districts
    output: joined
  - op: filter_attr
    input: joined
    column: AnnualTemp
    cmp: gt
    value: 20
    output: warm
  - op: sample
    input: warm
    grid: temp
    attr: temp_c
    output: sampled
outputs:
  - source: sampled
    kind: geojson
    path: ` + outPath + `
`
	job, err := ParseJob(strings.NewReader(jobYAML))
	require.NoError(t, err)

	r := NewRunner(testConfig(), nil)
	res, err := r.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "warm-stations", res.Job)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Steps, 3)

	joined, ok := r.Collection("joined")
	require.True(t, ok)
	assert.Equal(t, 3, joined.Len())
	assert.Equal(t, "North", joined.Features[0].Attrs["district"])
	assert.Nil(t, joined.Features[1].Attrs["district"])

	// Only A1 lies in the district with AnnualTemp above 20.
	warm, ok := r.Collection("warm")
	require.True(t, ok)
	require.Equal(t, 1, warm.Len())
	assert.Equal(t, "A1", warm.Features[0].Attrs["name"])

	// A1 at (121.5, 25.0) falls in the grid's lower-left cell.
	sampled, ok := r.Collection("sampled")
	require.True(t, ok)
	require.Equal(t, 1, sampled.Len())
	assert.Equal(t, 30.0, sampled.Features[0].Attrs["temp_c"])

	back, err := vector.ReadGeoJSONFile(outPath, crs.WGS84)
	require.NoError(t, err)
	assert.Equal(t, 1, back.Len())
}

func TestRunReprojectAndBuffer(t *testing.T) {
	dir := writeFixtures(t)

	job := &Job{
		Name: "buffered",
		CRS:  "EPSG:4326",
		Sources: []Source{
			{Name: "stations", Kind: SourceCSV, Path: filepath.Join(dir, "stations.csv")},
		},
		Steps: []Step{
			{Op: "reproject", Input: "stations", To: "EPSG:3826", Output: "projected"},
			{Op: "buffer", Input: "projected", Distance: 500, Output: "zones"},
			{Op: "union", Input: "zones", Output: "merged"},
		},
	}
	require.NoError(t, job.Validate())

	r := NewRunner(testConfig(), nil)
	_, err := r.Run(context.Background(), job)
	require.NoError(t, err)

	projected, ok := r.Collection("projected")
	require.True(t, ok)
	assert.Equal(t, crs.TWD97, projected.CRS)

	zones, ok := r.Collection("zones")
	require.True(t, ok)
	assert.Equal(t, 3, zones.Len())

	merged, ok := r.Collection("merged")
	require.True(t, ok)
	assert.Equal(t, 1, merged.Len())
}

func TestRunClipRasterOutput(t *testing.T) {
	dir := writeFixtures(t)
	outPath := filepath.Join(dir, "clipped.asc")

	job := &Job{
		Name: "clip-temp",
		CRS:  "EPSG:4326",
		Sources: []Source{
			{Name: "districts", Kind: SourceGeoJSON, Path: filepath.Join(dir, "districts.geojson")},
			{Name: "temp", Kind: SourceASCIIGrid, Path: filepath.Join(dir, "temp.asc")},
		},
		Steps: []Step{
			{Op: "clip_raster", Grid: "temp", Mask: "districts", Output: "clipped"},
		},
		Outputs: []Output{
			{Source: "clipped", Kind: SourceASCIIGrid, Path: outPath},
		},
	}
	require.NoError(t, job.Validate())

	r := NewRunner(testConfig(), nil)
	_, err := r.Run(context.Background(), job)
	require.NoError(t, err)

	g, ok := r.Grid("clipped")
	require.True(t, ok)
	assert.Positive(t, g.Width)

	_, err = os.Stat(outPath)
	require.NoError(t, err)
}

func TestRunUnknownOp(t *testing.T) {
	dir := writeFixtures(t)

	job := &Job{
		Name: "bad",
		Sources: []Source{
			{Name: "stations", Kind: SourceCSV, Path: filepath.Join(dir, "stations.csv")},
		},
		Steps: []Step{{Op: "teleport", Input: "stations"}},
	}

	r := NewRunner(testConfig(), nil)
	_, err := r.Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestRunStoreOutputWithoutStore(t *testing.T) {
	dir := writeFixtures(t)

	job := &Job{
		Name: "no-store",
		Sources: []Source{
			{Name: "stations", Kind: SourceCSV, Path: filepath.Join(dir, "stations.csv")},
		},
		Outputs: []Output{{Source: "stations", Kind: "store", Name: "stations"}},
	}
	require.NoError(t, job.Validate())

	r := NewRunner(testConfig(), nil)
	_, err := r.Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store")
}
