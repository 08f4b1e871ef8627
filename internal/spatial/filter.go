package spatial

import (
	"github.com/akavel/polyclip-go"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
)

// FilterIntersects returns the features of c whose geometry intersects the
// union of the mask collection's geometries. Geometries are kept whole
// (select by location); input order is preserved. Both collections must
// share a CRS.
func FilterIntersects(c, mask *feature.Collection) (*feature.Collection, error) {
	if c.CRS != mask.CRS {
		return nil, eris.Wrapf(crs.ErrMismatch, "filter: %s vs %s", c.CRS, mask.CRS)
	}

	out := &feature.Collection{CRS: c.CRS}
	for i, f := range c.Features {
		hit, err := intersectsAny(f.Geometry, mask)
		if err != nil {
			return nil, eris.Wrapf(err, "filter: feature %d", i)
		}
		if hit {
			out.Features = append(out.Features, f)
		}
	}
	return out, nil
}

// Clip returns c with every geometry clipped to the union of the mask
// collection's polygons. Point features are kept whole when contained and
// dropped otherwise; polygonal features are replaced by their intersection
// region, and dropped when it is empty. Both collections must share a CRS.
func Clip(c, mask *feature.Collection) (*feature.Collection, error) {
	if c.CRS != mask.CRS {
		return nil, eris.Wrapf(crs.ErrMismatch, "clip: %s vs %s", c.CRS, mask.CRS)
	}

	maskContours, err := collectionContours(mask)
	if err != nil {
		return nil, eris.Wrap(err, "clip: mask")
	}

	out := &feature.Collection{CRS: c.CRS}
	for i, f := range c.Features {
		if _, ok := pointCoord(f.Geometry); ok {
			hit, err := intersectsAny(f.Geometry, mask)
			if err != nil {
				return nil, eris.Wrapf(err, "clip: feature %d", i)
			}
			if hit {
				out.Features = append(out.Features, f)
			}
			continue
		}

		contours, err := toPolyclip(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "clip: feature %d", i)
		}
		clipped := intersectContours(contours, maskContours)
		if len(clipped) == 0 {
			continue
		}
		out.Features = append(out.Features, feature.Feature{
			Geometry: fromPolyclip(clipped, c.CRS.Code()),
			Attrs:    f.Attrs,
		})
	}
	return out, nil
}

func intersectsAny(g geom.T, mask *feature.Collection) (bool, error) {
	for j, m := range mask.Features {
		hit, err := Intersects(g, m.Geometry)
		if err != nil {
			return false, eris.Wrapf(err, "mask feature %d", j)
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}

// collectionContours folds every polygonal geometry of a collection into a
// single unioned contour set.
func collectionContours(c *feature.Collection) (polyclip.Polygon, error) {
	var acc polyclip.Polygon
	for i, f := range c.Features {
		p, err := toPolyclip(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "feature %d", i)
		}
		if acc == nil {
			acc = p
			continue
		}
		acc = unionContours(acc, p)
	}
	return acc, nil
}
