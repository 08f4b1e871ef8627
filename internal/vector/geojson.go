package vector

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
)

// WriteGeoJSON writes a collection as a GeoJSON FeatureCollection. Null
// attribute values from left joins come out as JSON null.
func WriteGeoJSON(w io.Writer, c *feature.Collection) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, c.Len())}
	for _, f := range c.Features {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   f.Geometry,
			Properties: f.Attrs,
		})
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(&fc); err != nil {
		return eris.Wrap(err, "vector: encode geojson")
	}
	return nil
}

// WriteGeoJSONFile writes a collection to a GeoJSON file.
func WriteGeoJSONFile(path string, c *feature.Collection) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "vector: create %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := WriteGeoJSON(f, c); err != nil {
		return err
	}
	return eris.Wrap(f.Close(), "vector: close geojson file")
}

// ReadGeoJSON reads a GeoJSON FeatureCollection. GeoJSON coordinates are
// WGS84 by specification unless the caller knows otherwise and passes a
// different identifier.
func ReadGeoJSON(r io.Reader, id crs.ID) (*feature.Collection, error) {
	if id == "" {
		id = crs.WGS84
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "vector: read geojson")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "vector: decode geojson")
	}

	out := feature.NewCollection(id)
	for _, f := range fc.Features {
		out.Features = append(out.Features, feature.Feature{
			Geometry: f.Geometry,
			Attrs:    f.Properties,
		})
	}
	return out, nil
}

// ReadGeoJSONFile reads a GeoJSON file into a collection.
func ReadGeoJSONFile(path string, id crs.ID) (*feature.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open %s", path)
	}
	defer func() { _ = f.Close() }()

	return ReadGeoJSON(f, id)
}
