package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/spatial"
)

// Crop returns the minimal sub-grid aligned to the existing cell lattice
// that covers the geometry's extent. Fails with ErrEmptyIntersection when
// the extent does not overlap the grid at all. The original grid is left
// unmodified.
func (g *Grid) Crop(poly geom.T, polyCRS crs.ID) (*Grid, error) {
	if polyCRS != g.CRS {
		return nil, eris.Wrapf(crs.ErrMismatch, "crop: polygon %s vs grid %s", polyCRS, g.CRS)
	}
	if g.Transform[2] != 0 || g.Transform[4] != 0 {
		return nil, eris.New("raster: crop requires an axis-aligned grid")
	}

	b := poly.Bounds()
	c0, r0 := g.Cell(b.Min(0), b.Max(1))
	c1, r1 := g.Cell(b.Max(0), b.Min(1))

	colMin := int(math.Floor(math.Min(c0, c1)))
	colMax := int(math.Ceil(math.Max(c0, c1)))
	rowMin := int(math.Floor(math.Min(r0, r1)))
	rowMax := int(math.Ceil(math.Max(r0, r1)))

	if colMax <= 0 || rowMax <= 0 || colMin >= g.Width || rowMin >= g.Height {
		return nil, eris.Wrapf(ErrEmptyIntersection, "bounds [%g, %g, %g, %g]",
			b.Min(0), b.Min(1), b.Max(0), b.Max(1))
	}

	colMin = max(colMin, 0)
	rowMin = max(rowMin, 0)
	colMax = min(colMax, g.Width)
	rowMax = min(rowMax, g.Height)

	x0, y0 := g.CellOrigin(colMin, rowMin)
	out := New(colMax-colMin, rowMax-rowMin, g.CRS, [6]float64{
		x0, g.Transform[1], 0,
		y0, 0, g.Transform[5],
	}, g.NoData)

	for row := rowMin; row < rowMax; row++ {
		for col := colMin; col < colMax; col++ {
			out.Set(col-colMin, row-rowMin, g.At(col, row))
		}
	}
	return out, nil
}

// Mask returns a copy of the grid where every cell whose center falls
// outside the polygon is set to the no-data sentinel.
func (g *Grid) Mask(poly geom.T, polyCRS crs.ID) (*Grid, error) {
	if polyCRS != g.CRS {
		return nil, eris.Wrapf(crs.ErrMismatch, "mask: polygon %s vs grid %s", polyCRS, g.CRS)
	}

	out := g.Clone()
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			x, y := g.CellCenter(col, row)
			inside, err := spatial.ContainsPoint(poly, geom.Coord{x, y})
			if err != nil {
				return nil, eris.Wrap(err, "raster: mask")
			}
			if !inside {
				out.Set(col, row, g.NoData)
			}
		}
	}
	return out, nil
}

// Clip crops the grid to the polygon's extent and masks cells outside the
// polygon's interior, returning a new grid.
func (g *Grid) Clip(poly geom.T, polyCRS crs.ID) (*Grid, error) {
	cropped, err := g.Crop(poly, polyCRS)
	if err != nil {
		return nil, err
	}
	return cropped.Mask(poly, polyCRS)
}
