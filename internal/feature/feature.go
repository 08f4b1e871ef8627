// Package feature defines the vector data model: a feature pairs one
// geometry with named attributes, and a collection is an ordered sequence of
// features sharing one coordinate reference system. Features are value
// objects; every transformation returns a new collection and never mutates
// its input.
package feature

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/atlasgrid/geopipe/internal/crs"
)

// Error kinds reported by feature construction and filtering.
var (
	// ErrInvalidCoordinate means a coordinate field was non-numeric or
	// outside the valid longitude/latitude range.
	ErrInvalidCoordinate = eris.New("feature: invalid coordinate")
	// ErrUnknownAttribute means a named attribute is absent from a feature.
	ErrUnknownAttribute = eris.New("feature: unknown attribute")
	// ErrTypeMismatch means an ordering comparison was applied to a
	// non-numeric attribute value.
	ErrTypeMismatch = eris.New("feature: attribute type mismatch")
)

// Feature is one geometry with its attributes. Attribute values are string,
// float64 or nil (the null sentinel introduced by left joins).
type Feature struct {
	Geometry geom.T
	Attrs    map[string]any
}

// CloneAttrs returns a shallow copy of the feature's attribute map.
func (f Feature) CloneAttrs() map[string]any {
	out := make(map[string]any, len(f.Attrs))
	for k, v := range f.Attrs {
		out[k] = v
	}
	return out
}

// Collection is an ordered sequence of features in a single CRS. Insertion
// order is preserved through filtering.
type Collection struct {
	CRS      crs.ID
	Features []Feature
}

// NewCollection returns an empty collection tagged with the given CRS.
func NewCollection(id crs.ID) *Collection {
	return &Collection{CRS: id}
}

// Len returns the number of features.
func (c *Collection) Len() int { return len(c.Features) }

// Bounds returns the coordinate bounds of all member geometries, or nil for
// an empty collection.
func (c *Collection) Bounds() *geom.Bounds {
	var b *geom.Bounds
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		if b == nil {
			b = geom.NewBounds(f.Geometry.Layout())
		}
		b = b.Extend(f.Geometry)
	}
	return b
}

// Reproject returns the collection expressed in the target CRS. When the
// target matches the collection's CRS the receiver is returned unchanged
// without invoking any transform.
func (c *Collection) Reproject(to crs.ID) (*Collection, error) {
	if c.CRS == to {
		return c, nil
	}
	out := &Collection{CRS: to, Features: make([]Feature, 0, len(c.Features))}
	for i, f := range c.Features {
		g, err := crs.TransformGeom(f.Geometry, c.CRS, to)
		if err != nil {
			return nil, eris.Wrapf(err, "feature: reproject feature %d", i)
		}
		out.Features = append(out.Features, Feature{Geometry: g, Attrs: f.Attrs})
	}
	return out, nil
}
