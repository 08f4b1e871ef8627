package raster

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/atlasgrid/geopipe/internal/crs"
)

// Reproject returns the grid expressed in the target CRS using
// nearest-neighbor resampling over a grid of the same dimensions. The target
// extent is the transformed footprint of the source extent, densified along
// the edges so curved projections are covered. When the target matches the
// grid's CRS the receiver is returned unchanged.
func (g *Grid) Reproject(to crs.ID) (*Grid, error) {
	if to == g.CRS {
		return g, nil
	}
	fwd, err := crs.NewTransformer(g.CRS, to)
	if err != nil {
		return nil, eris.Wrap(err, "raster: reproject")
	}
	inv, err := crs.NewTransformer(to, g.CRS)
	if err != nil {
		return nil, eris.Wrap(err, "raster: reproject")
	}

	bounds := g.footprint(fwd)
	width, height := g.Width, g.Height
	cellW := (bounds.Max(0) - bounds.Min(0)) / float64(width)
	cellH := (bounds.Max(1) - bounds.Min(1)) / float64(height)

	out := New(width, height, to, [6]float64{
		bounds.Min(0), cellW, 0,
		bounds.Max(1), 0, -cellH,
	}, g.NoData)

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			x, y := out.CellCenter(col, row)
			sx, sy := inv.Point(x, y)
			out.Set(col, row, g.Sample(sx, sy))
		}
	}
	return out, nil
}

// footprint transforms points along the grid's edges and returns their
// bounds in the target CRS.
func (g *Grid) footprint(t *crs.Transformer) *geom.Bounds {
	const steps = 20
	b := geom.NewBounds(geom.XY)
	for i := 0; i <= steps; i++ {
		fc := float64(i) / steps * float64(g.Width)
		for _, fr := range []float64{0, float64(g.Height)} {
			x, y := g.cornerCoord(fc, fr)
			tx, ty := t.Point(x, y)
			b = b.Extend(geom.NewPointFlat(geom.XY, []float64{tx, ty}))
		}
	}
	for i := 0; i <= steps; i++ {
		fr := float64(i) / steps * float64(g.Height)
		for _, fc := range []float64{0, float64(g.Width)} {
			x, y := g.cornerCoord(fc, fr)
			tx, ty := t.Point(x, y)
			b = b.Extend(geom.NewPointFlat(geom.XY, []float64{tx, ty}))
		}
	}
	return b
}

func (g *Grid) cornerCoord(fc, fr float64) (x, y float64) {
	t := g.Transform
	return t[0] + fc*t[1] + fr*t[2], t[3] + fc*t[4] + fr*t[5]
}
