package crs

import (
	"github.com/rotisserie/eris"
)

// Resolve returns the projection for an identifier. The built-in registry
// covers WGS84, Web Mercator, TWD97, the WGS84 UTM zones (EPSG:32601-32660
// north, 32701-32760 south) and the non-georeferenced pixel space.
func Resolve(id ID) (Projection, error) {
	if id == Local {
		return nil, eris.Wrapf(ErrNoTransform, "%s is not georeferenced", id)
	}

	code := id.Code()
	switch {
	case code == 4326:
		return geographic{}, nil
	case code == 3857:
		return webMercator{}, nil
	case code == 3826:
		return twd97(), nil
	case code >= 32601 && code <= 32660:
		return utmZone(code-32600, true), nil
	case code >= 32701 && code <= 32760:
		return utmZone(code-32700, false), nil
	}
	return nil, eris.Wrapf(ErrUnknown, "%s", id)
}

// UnitOf reports the axis unit of an identifier's coordinate system.
func UnitOf(id ID) (Unit, error) {
	p, err := Resolve(id)
	if err != nil {
		return UnitDegree, err
	}
	return p.Unit(), nil
}

// Transformer converts coordinate pairs from one CRS to another.
type Transformer struct {
	from, to Projection
	identity bool
}

// NewTransformer resolves both identifiers and returns a transformer between
// them. When the identifiers match exactly the transformer passes
// coordinates through untouched without resolving anything.
func NewTransformer(from, to ID) (*Transformer, error) {
	if from == to {
		return &Transformer{identity: true}, nil
	}
	src, err := Resolve(from)
	if err != nil {
		return nil, eris.Wrap(err, "crs: resolve source")
	}
	dst, err := Resolve(to)
	if err != nil {
		return nil, eris.Wrap(err, "crs: resolve target")
	}
	return &Transformer{from: src, to: dst}, nil
}

// Point transforms a single coordinate pair.
func (t *Transformer) Point(x, y float64) (float64, float64) {
	if t.identity {
		return x, y
	}
	lon, lat := t.from.ToWGS84(x, y)
	return t.to.FromWGS84(lon, lat)
}

// Flat transforms interleaved XY coordinates in place and returns the slice.
// The stride accommodates layouts carrying Z or M values, which pass through
// unchanged.
func (t *Transformer) Flat(coords []float64, stride int) []float64 {
	if t.identity {
		return coords
	}
	for i := 0; i+1 < len(coords); i += stride {
		coords[i], coords[i+1] = t.Point(coords[i], coords[i+1])
	}
	return coords
}
