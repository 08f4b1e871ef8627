package render

import (
	"image"
	"image/color"
	"math"

	"github.com/twpayne/go-geom"
	xdraw "golang.org/x/image/draw"

	"github.com/atlasgrid/geopipe/internal/raster"
)

// Ramp maps a normalized value in [0,1] to a color.
type Ramp func(t float64) color.Color

// GrayRamp is the default single-band ramp, dark low to light high.
func GrayRamp(t float64) color.Color {
	v := uint8(math.Round(t * 255))
	return color.RGBA{R: v, G: v, B: v, A: 0xff}
}

// HeatRamp goes blue through green to red.
func HeatRamp(t float64) color.Color {
	switch {
	case t < 0.5:
		u := t * 2
		return color.RGBA{G: uint8(u * 255), B: uint8((1 - u) * 255), A: 0xff}
	default:
		u := (t - 0.5) * 2
		return color.RGBA{R: uint8(u * 255), G: uint8((1 - u) * 255), A: 0xff}
	}
}

// RasterLayer draws a grid using a color ramp stretched between the grid's
// minimum and maximum values. NoData cells stay transparent.
type RasterLayer struct {
	Grid *raster.Grid
	Ramp Ramp
}

func (l *RasterLayer) Extent() *geom.Bounds {
	if l.Grid == nil {
		return nil
	}
	return l.Grid.Bounds()
}

func (l *RasterLayer) Draw(c *Canvas) {
	g := l.Grid
	ramp := l.Ramp
	if ramp == nil {
		ramp = GrayRamp
	}

	lo, hi, ok := valueRange(g)
	if !ok {
		return
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	// One pixel per cell, then scale onto the canvas.
	cells := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v := g.At(col, row)
			if v == g.NoData {
				continue
			}
			cells.Set(col, row, ramp((v-lo)/span))
		}
	}

	b := g.Bounds()
	x0, y0 := c.Pixel(b.Min(0), b.Max(1))
	x1, y1 := c.Pixel(b.Max(0), b.Min(1))
	dst := image.Rect(x0, y0, x1+1, y1+1)
	xdraw.NearestNeighbor.Scale(c.Img, dst, cells, cells.Bounds(), xdraw.Over, nil)
}

func valueRange(g *raster.Grid) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		if v == g.NoData {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, lo <= hi
}
