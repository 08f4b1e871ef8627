// Package raster implements an in-memory raster grid with a GDAL-style
// affine geotransform, nearest-cell sampling, crop/mask clipping and
// reprojection.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
)

// ErrEmptyIntersection means a clip polygon does not overlap the grid
// extent at all.
var ErrEmptyIntersection = eris.New("raster: polygon does not intersect grid extent")

// Grid is a 2-D array of cell values with the six-term affine transform
// mapping cell indices to CRS coordinates:
//
//	x = T[0] + col*T[1] + row*T[2]
//	y = T[3] + col*T[4] + row*T[5]
//
// Data is stored row-major from the top-left cell. Cells holding NoData
// carry no valid measurement.
type Grid struct {
	Width, Height int
	CRS           crs.ID
	Transform     [6]float64
	NoData        float64
	Data          []float64
}

// New allocates a grid with every cell set to the no-data sentinel.
func New(width, height int, id crs.ID, transform [6]float64, noData float64) *Grid {
	data := make([]float64, width*height)
	for i := range data {
		data[i] = noData
	}
	return &Grid{
		Width:     width,
		Height:    height,
		CRS:       id,
		Transform: transform,
		NoData:    noData,
		Data:      data,
	}
}

// At returns the value of the cell at (col, row).
func (g *Grid) At(col, row int) float64 {
	return g.Data[row*g.Width+col]
}

// Set assigns the cell at (col, row).
func (g *Grid) Set(col, row int, v float64) {
	g.Data[row*g.Width+col] = v
}

// CellOrigin returns the CRS coordinate of the top-left corner of a cell.
func (g *Grid) CellOrigin(col, row int) (x, y float64) {
	t := g.Transform
	fc, fr := float64(col), float64(row)
	return t[0] + fc*t[1] + fr*t[2], t[3] + fc*t[4] + fr*t[5]
}

// CellCenter returns the CRS coordinate of the center of a cell.
func (g *Grid) CellCenter(col, row int) (x, y float64) {
	t := g.Transform
	fc, fr := float64(col)+0.5, float64(row)+0.5
	return t[0] + fc*t[1] + fr*t[2], t[3] + fc*t[4] + fr*t[5]
}

// Cell returns the fractional cell indices of a CRS coordinate under the
// inverse affine transform.
func (g *Grid) Cell(x, y float64) (col, row float64) {
	t := g.Transform
	det := t[1]*t[5] - t[2]*t[4]
	dx, dy := x-t[0], y-t[3]
	col = (t[5]*dx - t[2]*dy) / det
	row = (t[1]*dy - t[4]*dx) / det
	return col, row
}

// Bounds returns the coordinate extent covered by the grid.
func (g *Grid) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, corner := range [][2]int{{0, 0}, {g.Width, 0}, {0, g.Height}, {g.Width, g.Height}} {
		x, y := g.CellOrigin(corner[0], corner[1])
		b = b.Extend(geom.NewPointFlat(geom.XY, []float64{x, y}))
	}
	return b
}

// Sample returns the value of the cell containing the coordinate, or the
// no-data sentinel when the coordinate falls outside the grid extent.
// Nearest-cell lookup only; no interpolation.
func (g *Grid) Sample(x, y float64) float64 {
	fc, fr := g.Cell(x, y)
	col, row := int(math.Floor(fc)), int(math.Floor(fr))
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return g.NoData
	}
	return g.At(col, row)
}

// SampleCollection returns the grid value under each point of the
// collection, in feature order. The collection must be in the grid's CRS.
func (g *Grid) SampleCollection(c *feature.Collection) ([]float64, error) {
	if c.CRS != g.CRS {
		return nil, eris.Wrapf(crs.ErrMismatch, "sample: points %s vs grid %s", c.CRS, g.CRS)
	}
	values := make([]float64, 0, c.Len())
	for i, f := range c.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("raster: sample: feature %d is %T, want point", i, f.Geometry)
		}
		values = append(values, g.Sample(pt.X(), pt.Y()))
	}
	return values, nil
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Data = append([]float64(nil), g.Data...)
	return &out
}
