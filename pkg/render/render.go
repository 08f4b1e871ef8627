// Package render rasterizes feature collections and grids to PNG images for
// quick visual inspection of pipeline results.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/atlasgrid/geopipe/internal/feature"
)

// Layer draws itself onto a canvas using the canvas's coordinate mapping.
type Layer interface {
	Draw(c *Canvas)

	// Extent returns the layer's bounds in world coordinates, or nil when
	// the layer is empty.
	Extent() *geom.Bounds
}

// Canvas is a pixel buffer with an affine mapping from world coordinates.
type Canvas struct {
	Img    *image.RGBA
	bounds *geom.Bounds
	scaleX float64
	scaleY float64
}

// Pixel maps a world coordinate to canvas pixel coordinates. Y is flipped:
// world north is image up.
func (c *Canvas) Pixel(x, y float64) (px, py int) {
	px = int(math.Round((x - c.bounds.Min(0)) * c.scaleX))
	py = int(math.Round((c.bounds.Max(1) - y) * c.scaleY))
	return px, py
}

// Renderer composes layers onto a single image.
type Renderer struct {
	Width      int
	Height     int
	Background color.Color
}

// Render draws the layers in order onto a fresh canvas sized to their
// combined extent.
func (r *Renderer) Render(layers ...Layer) (*image.RGBA, error) {
	var extent *geom.Bounds
	for _, l := range layers {
		b := l.Extent()
		if b == nil {
			continue
		}
		if extent == nil {
			extent = b
			continue
		}
		extent = extent.
			Extend(geom.NewPointFlat(geom.XY, []float64{b.Min(0), b.Min(1)})).
			Extend(geom.NewPointFlat(geom.XY, []float64{b.Max(0), b.Max(1)}))
	}
	if extent == nil {
		return nil, eris.New("render: all layers are empty")
	}

	width, height := r.Width, r.Height
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bg := r.Background
	if bg == nil {
		bg = color.White
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	spanX := extent.Max(0) - extent.Min(0)
	spanY := extent.Max(1) - extent.Min(1)
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}

	canvas := &Canvas{
		Img:    img,
		bounds: extent,
		scaleX: float64(width-1) / spanX,
		scaleY: float64(height-1) / spanY,
	}
	for _, l := range layers {
		l.Draw(canvas)
	}
	return img, nil
}

// WritePNG renders layers and encodes the result as PNG.
func (r *Renderer) WritePNG(w io.Writer, layers ...Layer) error {
	img, err := r.Render(layers...)
	if err != nil {
		return err
	}
	return eris.Wrap(png.Encode(w, img), "render: encode png")
}

// WritePNGFile renders layers to a PNG file.
func (r *Renderer) WritePNGFile(path string, layers ...Layer) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	defer func() { _ = f.Close() }()
	return r.WritePNG(f, layers...)
}

// PointLayer draws point features as filled discs.
type PointLayer struct {
	Collection *feature.Collection
	Color      color.Color
	Radius     int
}

func (l *PointLayer) Extent() *geom.Bounds {
	if l.Collection == nil || l.Collection.Len() == 0 {
		return nil
	}
	return l.Collection.Bounds()
}

func (l *PointLayer) Draw(c *Canvas) {
	col := l.Color
	if col == nil {
		col = color.RGBA{R: 0xd6, G: 0x2e, B: 0x2e, A: 0xff}
	}
	radius := l.Radius
	if radius <= 0 {
		radius = 3
	}

	for _, f := range l.Collection.Features {
		p, ok := f.Geometry.(*geom.Point)
		if !ok {
			continue
		}
		px, py := c.Pixel(p.X(), p.Y())
		fillDisc(c.Img, px, py, radius, col)
	}
}

// PolygonLayer draws polygon outlines and an optional translucent fill.
type PolygonLayer struct {
	Collection *feature.Collection
	Stroke     color.Color
	Fill       color.Color
}

func (l *PolygonLayer) Extent() *geom.Bounds {
	if l.Collection == nil || l.Collection.Len() == 0 {
		return nil
	}
	return l.Collection.Bounds()
}

func (l *PolygonLayer) Draw(c *Canvas) {
	stroke := l.Stroke
	if stroke == nil {
		stroke = color.RGBA{R: 0x1f, G: 0x4e, B: 0x79, A: 0xff}
	}

	for _, f := range l.Collection.Features {
		for _, ring := range polygonRings(f.Geometry) {
			if l.Fill != nil {
				fillRing(c, ring, l.Fill)
			}
			strokeRing(c, ring, stroke)
		}
	}
}

// polygonRings extracts rings as flat XY slices from polygonal geometries.
func polygonRings(g geom.T) [][]float64 {
	var rings [][]float64
	switch t := g.(type) {
	case *geom.Polygon:
		for i := 0; i < t.NumLinearRings(); i++ {
			rings = append(rings, t.LinearRing(i).FlatCoords())
		}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			rings = append(rings, polygonRings(t.Polygon(i))...)
		}
	case *geom.LineString:
		rings = append(rings, t.FlatCoords())
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			rings = append(rings, t.LineString(i).FlatCoords())
		}
	}
	return rings
}

func strokeRing(c *Canvas, ring []float64, col color.Color) {
	for i := 0; i+3 < len(ring); i += 2 {
		x0, y0 := c.Pixel(ring[i], ring[i+1])
		x1, y1 := c.Pixel(ring[i+2], ring[i+3])
		drawLine(c.Img, x0, y0, x1, y1, col)
	}
}

// fillRing fills a ring with an even-odd scanline pass.
func fillRing(c *Canvas, ring []float64, col color.Color) {
	n := len(ring) / 2
	if n < 3 {
		return
	}

	xs := make([]int, n)
	ys := make([]int, n)
	minY, maxY := math.MaxInt32, math.MinInt32
	for i := 0; i < n; i++ {
		xs[i], ys[i] = c.Pixel(ring[2*i], ring[2*i+1])
		if ys[i] < minY {
			minY = ys[i]
		}
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}

	rect := c.Img.Bounds()
	for y := max(minY, rect.Min.Y); y <= min(maxY, rect.Max.Y-1); y++ {
		var crossings []int
		j := n - 1
		for i := 0; i < n; i++ {
			if (ys[i] <= y && ys[j] > y) || (ys[j] <= y && ys[i] > y) {
				t := float64(y-ys[i]) / float64(ys[j]-ys[i])
				crossings = append(crossings, xs[i]+int(t*float64(xs[j]-xs[i])))
			}
			j = i
		}
		for k := 0; k+1 < len(crossings); k += 2 {
			lo, hi := crossings[k], crossings[k+1]
			if lo > hi {
				lo, hi = hi, lo
			}
			for x := max(lo, rect.Min.X); x <= min(hi, rect.Max.X-1); x++ {
				blend(c.Img, x, y, col)
			}
		}
	}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		setInBounds(img, x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func fillDisc(img *image.RGBA, cx, cy, r int, col color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				setInBounds(img, cx+dx, cy+dy, col)
			}
		}
	}
}

func setInBounds(img *image.RGBA, x, y int, col color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, col)
	}
}

// blend applies col over the existing pixel using its alpha.
func blend(img *image.RGBA, x, y int, col color.Color) {
	if !image.Pt(x, y).In(img.Bounds()) {
		return
	}
	draw.Draw(img, image.Rect(x, y, x+1, y+1), image.NewUniform(col), image.Point{}, draw.Over)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
