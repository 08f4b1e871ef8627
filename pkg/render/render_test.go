package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
	"github.com/atlasgrid/geopipe/internal/raster"
)

func pointCollection(coords ...float64) *feature.Collection {
	c := feature.NewCollection(crs.WGS84)
	for i := 0; i+1 < len(coords); i += 2 {
		c.Features = append(c.Features, feature.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{coords[i], coords[i+1]}),
			Attrs:    map[string]any{},
		})
	}
	return c
}

func squareCollection() *feature.Collection {
	c := feature.NewCollection(crs.WGS84)
	c.Features = append(c.Features, feature.Feature{
		Geometry: geom.NewPolygonFlat(geom.XY,
			[]float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10}),
		Attrs: map[string]any{},
	})
	return c
}

func TestRenderPointLayer(t *testing.T) {
	r := &Renderer{Width: 100, Height: 80}
	img, err := r.Render(&PointLayer{Collection: pointCollection(0, 0, 10, 10)})
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 80, b.Dy())

	// Point (0,0) lands bottom-left; the default disc paints that corner.
	red := color.RGBA{R: 0xd6, G: 0x2e, B: 0x2e, A: 0xff}
	assert.Equal(t, red, img.RGBAAt(0, 79))
	assert.Equal(t, red, img.RGBAAt(99, 0))
	// Center stays background white.
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, img.RGBAAt(50, 40))
}

// The canvas extent is the union of all layer extents, so a layer in one
// corner must not clip a layer in the opposite corner.
func TestRenderMergesLayerExtents(t *testing.T) {
	r := &Renderer{Width: 100, Height: 80}
	img, err := r.Render(
		&PointLayer{Collection: pointCollection(0, 0)},
		&PointLayer{Collection: pointCollection(10, 10)},
	)
	require.NoError(t, err)

	red := color.RGBA{R: 0xd6, G: 0x2e, B: 0x2e, A: 0xff}
	assert.Equal(t, red, img.RGBAAt(0, 79))
	assert.Equal(t, red, img.RGBAAt(99, 0))
}

func TestRenderDefaultSize(t *testing.T) {
	r := &Renderer{}
	img, err := r.Render(&PointLayer{Collection: pointCollection(0, 0, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestRenderEmptyLayers(t *testing.T) {
	r := &Renderer{}
	_, err := r.Render(&PointLayer{Collection: feature.NewCollection(crs.WGS84)})
	require.Error(t, err)
}

func TestRenderPolygonLayer(t *testing.T) {
	r := &Renderer{Width: 50, Height: 50}
	fill := color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xff}
	img, err := r.Render(&PolygonLayer{Collection: squareCollection(), Fill: fill})
	require.NoError(t, err)

	// Interior filled, opaque fill replaces the background.
	assert.Equal(t, fill, img.RGBAAt(25, 25))
}

func TestRenderRasterLayer(t *testing.T) {
	g := &raster.Grid{
		Width:  2,
		Height: 2,
		CRS:    crs.WGS84,
		// 1x1 degree cells anchored at (0, 2) top-left.
		Transform: [6]float64{0, 1, 0, 2, 0, -1},
		NoData:    -9999,
		Data:      []float64{0, 100, 50, -9999},
	}

	r := &Renderer{Width: 40, Height: 40}
	img, err := r.Render(&RasterLayer{Grid: g})
	require.NoError(t, err)

	// Min value maps to black, max to white under the gray ramp.
	assert.Equal(t, color.RGBA{A: 0xff}, img.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, img.RGBAAt(35, 5))
	// NoData cell stays the white background.
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, img.RGBAAt(35, 35))
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	r := &Renderer{Width: 20, Height: 20}
	require.NoError(t, r.WritePNG(&buf, &PointLayer{Collection: pointCollection(0, 0, 5, 5)}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
}

func TestRamps(t *testing.T) {
	assert.Equal(t, color.RGBA{A: 0xff}, GrayRamp(0))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, GrayRamp(1))

	low, ok := HeatRamp(0).(color.RGBA)
	require.True(t, ok)
	assert.Equal(t, uint8(0xff), low.B)
	high, ok := HeatRamp(1).(color.RGBA)
	require.True(t, ok)
	assert.Equal(t, uint8(0xff), high.R)
}
