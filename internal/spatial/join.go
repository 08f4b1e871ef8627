package spatial

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
)

// JoinKind selects the join behavior for unmatched left features.
type JoinKind int

const (
	// LeftJoin keeps unmatched left features with null right-side attributes.
	LeftJoin JoinKind = iota
	// InnerJoin drops left features not contained by any right polygon.
	InnerJoin
)

// Join associates each point of the left collection with the attributes of
// the first right polygon containing it, boundary included. When several
// right polygons overlap at a point the first one in input order wins. Right
// attribute names already present on the left feature get a "_right" suffix.
// Both collections must share a CRS.
func Join(left, right *feature.Collection, kind JoinKind) (*feature.Collection, error) {
	if left.CRS != right.CRS {
		return nil, eris.Wrapf(crs.ErrMismatch, "join: left %s vs right %s", left.CRS, right.CRS)
	}

	rightKeys := attributeKeys(right)

	out := &feature.Collection{CRS: left.CRS}
	for i, f := range left.Features {
		pt, ok := pointCoord(f.Geometry)
		if !ok {
			return nil, eris.Errorf("spatial: join: left feature %d is %T, want point", i, f.Geometry)
		}

		match := -1
		for j, r := range right.Features {
			contained, err := ContainsPoint(r.Geometry, pt)
			if err != nil {
				return nil, eris.Wrapf(err, "join: right feature %d", j)
			}
			if contained {
				match = j
				break
			}
		}

		if match < 0 && kind == InnerJoin {
			continue
		}

		attrs := f.CloneAttrs()
		for _, k := range rightKeys {
			name := k
			if _, taken := f.Attrs[k]; taken {
				name = k + "_right"
			}
			if match >= 0 {
				attrs[name] = right.Features[match].Attrs[k]
			} else {
				attrs[name] = nil
			}
		}
		out.Features = append(out.Features, feature.Feature{Geometry: f.Geometry, Attrs: attrs})
	}
	return out, nil
}

// attributeKeys returns the sorted union of attribute names across a
// collection, so joined output carries a stable column set.
func attributeKeys(c *feature.Collection) []string {
	seen := make(map[string]bool)
	for _, f := range c.Features {
		for k := range f.Attrs {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
