// Package spatial implements binary operations between feature collections:
// point-in-polygon joins, select-by-location filters, clipping, union and
// buffering. Both operands of every operation must share a CRS; callers
// reproject first.
package spatial

import (
	"github.com/akavel/polyclip-go"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// toPolyclip converts a go-geom polygonal geometry to the clipping library's
// contour representation. Interior rings become separate contours; the
// clipper resolves holes by even-odd winding.
func toPolyclip(g geom.T) (polyclip.Polygon, error) {
	switch g := g.(type) {
	case *geom.Polygon:
		return polygonContours(g), nil
	case *geom.MultiPolygon:
		var out polyclip.Polygon
		for i := 0; i < g.NumPolygons(); i++ {
			out = append(out, polygonContours(g.Polygon(i))...)
		}
		return out, nil
	default:
		return nil, eris.Errorf("spatial: %T is not polygonal", g)
	}
}

func polygonContours(p *geom.Polygon) polyclip.Polygon {
	var out polyclip.Polygon
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		coords := ring.FlatCoords()
		stride := ring.Stride()
		contour := make(polyclip.Contour, 0, len(coords)/stride)
		for j := 0; j+1 < len(coords); j += stride {
			contour = append(contour, polyclip.Point{X: coords[j], Y: coords[j+1]})
		}
		// polyclip contours are implicitly closed.
		if n := len(contour); n > 1 && contour[0] == contour[n-1] {
			contour = contour[:n-1]
		}
		out = append(out, contour)
	}
	return out
}

func intersectContours(a, b polyclip.Polygon) polyclip.Polygon {
	return a.Construct(polyclip.INTERSECTION, b)
}

func unionContours(a, b polyclip.Polygon) polyclip.Polygon {
	return a.Construct(polyclip.UNION, b)
}

// fromPolyclip rebuilds a go-geom MultiPolygon from clipper output. Each
// contour whose first vertex lies strictly inside another contour is treated
// as a hole of that contour's polygon.
func fromPolyclip(p polyclip.Polygon, srid int) *geom.MultiPolygon {
	rings := make([][]float64, len(p))
	for i, contour := range p {
		flat := make([]float64, 0, (len(contour)+1)*2)
		for _, pt := range contour {
			flat = append(flat, pt.X, pt.Y)
		}
		// Close the ring.
		if len(contour) > 0 {
			flat = append(flat, contour[0].X, contour[0].Y)
		}
		rings[i] = flat
	}

	holeOf := make([]int, len(rings))
	for i := range rings {
		holeOf[i] = shellIndex(rings, i)
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)
	polyIdx := make(map[int]*geom.Polygon)
	for i, flat := range rings {
		if holeOf[i] >= 0 {
			continue
		}
		poly := geom.NewPolygon(geom.XY)
		_ = poly.Push(geom.NewLinearRingFlat(geom.XY, flat))
		polyIdx[i] = poly
	}
	for i, flat := range rings {
		if shell := holeOf[i]; shell >= 0 {
			if poly, ok := polyIdx[shell]; ok {
				_ = poly.Push(geom.NewLinearRingFlat(geom.XY, flat))
			}
		}
	}
	for i := range rings {
		if poly, ok := polyIdx[i]; ok {
			_ = mp.Push(poly)
		}
	}
	return mp
}

// shellIndex returns the index of the innermost ring strictly containing
// ring i's first vertex, or -1 when ring i is itself a shell. Odd nesting
// depth marks a hole.
func shellIndex(rings [][]float64, i int) int {
	if len(rings[i]) < 2 {
		return -1
	}
	pt := geom.Coord{rings[i][0], rings[i][1]}

	depth := 0
	shell := -1
	for j, ring := range rings {
		if j == i {
			continue
		}
		if xy.IsPointInRing(geom.XY, pt, ring) && !xy.IsOnLine(geom.XY, pt, ring) {
			depth++
			shell = j
		}
	}
	if depth%2 == 1 {
		return shell
	}
	return -1
}
