package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// ContainsPoint reports whether a polygonal geometry contains the point,
// boundary included. A point on a hole boundary still counts as contained.
func ContainsPoint(g geom.T, pt geom.Coord) (bool, error) {
	switch g := g.(type) {
	case *geom.Polygon:
		return polygonContains(g, pt), nil
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if polygonContains(g.Polygon(i), pt) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, eris.Errorf("spatial: %T is not polygonal", g)
	}
}

func polygonContains(p *geom.Polygon, pt geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	exterior := p.LinearRing(0).FlatCoords()
	onEdge := xy.IsOnLine(geom.XY, pt, exterior)
	if !onEdge && !xy.IsPointInRing(geom.XY, pt, exterior) {
		return false
	}
	if onEdge {
		return true
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		hole := p.LinearRing(i).FlatCoords()
		if xy.IsOnLine(geom.XY, pt, hole) {
			return true
		}
		if xy.IsPointInRing(geom.XY, pt, hole) {
			return false
		}
	}
	return true
}

// Intersects reports whether two geometries share any point. Supported
// combinations are point/polygon, polygon/polygon and point/point, matching
// the toolkit's {Point, Polygon, MultiPolygon} data model.
func Intersects(a, b geom.T) (bool, error) {
	if pa, ok := pointCoord(a); ok {
		if pb, ok := pointCoord(b); ok {
			return pa[0] == pb[0] && pa[1] == pb[1], nil
		}
		return ContainsPoint(b, pa)
	}
	if pb, ok := pointCoord(b); ok {
		return ContainsPoint(a, pb)
	}

	ca, err := toPolyclip(a)
	if err != nil {
		return false, err
	}
	cb, err := toPolyclip(b)
	if err != nil {
		return false, err
	}
	if len(intersectContours(ca, cb)) > 0 {
		return true, nil
	}
	// The clipper reports open intersections only; fall back to vertex
	// containment so touching boundaries still intersect.
	for _, contour := range ca {
		for _, pt := range contour {
			ok, cErr := ContainsPoint(b, geom.Coord{pt.X, pt.Y})
			if cErr == nil && ok {
				return true, nil
			}
		}
	}
	for _, contour := range cb {
		for _, pt := range contour {
			ok, cErr := ContainsPoint(a, geom.Coord{pt.X, pt.Y})
			if cErr == nil && ok {
				return true, nil
			}
		}
	}
	return false, nil
}

func pointCoord(g geom.T) (geom.Coord, bool) {
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, false
	}
	return geom.Coord{pt.X(), pt.Y()}, true
}
