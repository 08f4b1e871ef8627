package spatial

import (
	"math"

	"github.com/akavel/polyclip-go"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
)

// Union merges every polygonal geometry of the collection into a single
// multipolygon. Attributes are dropped.
func Union(c *feature.Collection) (*geom.MultiPolygon, error) {
	acc, err := collectionContours(c)
	if err != nil {
		return nil, eris.Wrap(err, "union")
	}
	return fromPolyclip(acc, c.CRS.Code()), nil
}

// bufferSegments is the number of segments approximating a full circle in
// buffer offsets, matching the common 8-per-quadrant default.
const bufferSegments = 32

// Buffer expands a geometry outward by dist, measured in the CRS's linear
// units. A distance of zero returns the input unchanged. Distances are
// rejected on degree-unit geographic systems (ErrUnsuitableUnit): callers
// must reproject to a projected CRS first so the distance means meters, not
// degrees.
func Buffer(g geom.T, dist float64, id crs.ID) (geom.T, error) {
	if dist < 0 {
		return nil, eris.Errorf("spatial: buffer distance %g is negative", dist)
	}
	if dist == 0 {
		return g, nil
	}
	if unit, err := crs.UnitOf(id); err == nil && unit == crs.UnitDegree {
		return nil, eris.Wrapf(crs.ErrUnsuitableUnit, "buffer of %g in %s would be degrees", dist, id)
	}

	if pt, ok := pointCoord(g); ok {
		disc := polyclip.Polygon{discContour(pt[0], pt[1], dist)}
		poly := fromPolyclip(disc, id.Code())
		return poly, nil
	}

	contours, err := toPolyclip(g)
	if err != nil {
		return nil, eris.Wrap(err, "buffer")
	}

	// Minkowski sum with a disc: the geometry itself, a quad straddling
	// each boundary segment, and a disc at each vertex.
	acc := contours
	for _, contour := range contours {
		n := len(contour)
		for i := 0; i < n; i++ {
			p1 := contour[i]
			p2 := contour[(i+1)%n]
			if quad := segmentQuad(p1, p2, dist); quad != nil {
				acc = unionContours(acc, polyclip.Polygon{quad})
			}
			acc = unionContours(acc, polyclip.Polygon{discContour(p1.X, p1.Y, dist)})
		}
	}
	return fromPolyclip(acc, id.Code()), nil
}

// segmentQuad returns a rectangle of half-width dist straddling the segment,
// or nil for a degenerate zero-length segment.
func segmentQuad(p1, p2 polyclip.Point, dist float64) polyclip.Contour {
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	nx, ny := -dy/length*dist, dx/length*dist
	return polyclip.Contour{
		{X: p1.X + nx, Y: p1.Y + ny},
		{X: p2.X + nx, Y: p2.Y + ny},
		{X: p2.X - nx, Y: p2.Y - ny},
		{X: p1.X - nx, Y: p1.Y - ny},
	}
}

func discContour(cx, cy, r float64) polyclip.Contour {
	contour := make(polyclip.Contour, 0, bufferSegments)
	for i := 0; i < bufferSegments; i++ {
		theta := 2 * math.Pi * float64(i) / bufferSegments
		contour = append(contour, polyclip.Point{
			X: cx + r*math.Cos(theta),
			Y: cy + r*math.Sin(theta),
		})
	}
	return contour
}
