package crs

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// TransformGeom returns a copy of g with every coordinate converted from one
// CRS to the other. The input geometry is never modified. When the
// identifiers match exactly the input is returned unchanged.
func TransformGeom(g geom.T, from, to ID) (geom.T, error) {
	if from == to {
		return g, nil
	}
	t, err := NewTransformer(from, to)
	if err != nil {
		return nil, err
	}

	layout := g.Layout()
	stride := layout.Stride()
	flat := t.Flat(append([]float64(nil), g.FlatCoords()...), stride)
	srid := to.Code()

	switch g := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(layout, flat).SetSRID(srid), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(layout, flat).SetSRID(srid), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(layout, flat).SetSRID(srid), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(layout, flat, append([]int(nil), g.Ends()...)).SetSRID(srid), nil
	case *geom.LinearRing:
		return geom.NewLinearRingFlat(layout, flat), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(layout, flat, append([]int(nil), g.Ends()...)).SetSRID(srid), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(layout, flat, copyEndss(g.Endss())).SetSRID(srid), nil
	default:
		return nil, eris.Errorf("crs: unsupported geometry type %T", g)
	}
}

func copyEndss(endss [][]int) [][]int {
	out := make([][]int, len(endss))
	for i, ends := range endss {
		out[i] = append([]int(nil), ends...)
	}
	return out
}
