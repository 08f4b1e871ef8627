package feature

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/table"
)

// BuildOptions configures point-feature construction from tabular records.
type BuildOptions struct {
	LonColumn string // longitude column name
	LatColumn string // latitude column name
	CRS       crs.ID // CRS of the source coordinates; defaults to WGS84
}

// Build converts tabular records into a point feature collection. Records
// with missing coordinates must already have been dropped (table.DropMissing);
// any remaining non-numeric or out-of-range coordinate fails the whole build
// with ErrInvalidCoordinate. All non-coordinate fields become attributes;
// values that parse as numbers are stored as float64, everything else as
// string.
func Build(t *table.Table, opts BuildOptions) (*Collection, error) {
	if opts.CRS == "" {
		opts.CRS = crs.WGS84
	}
	if !t.HasColumn(opts.LonColumn) || !t.HasColumn(opts.LatColumn) {
		return nil, eris.Errorf("feature: coordinate columns %q/%q not in table", opts.LonColumn, opts.LatColumn)
	}

	out := &Collection{CRS: opts.CRS, Features: make([]Feature, 0, t.Len())}
	for i, rec := range t.Records {
		f, err := buildOne(rec, opts, i)
		if err != nil {
			return nil, err
		}
		out.Features = append(out.Features, f)
	}
	return out, nil
}

// BuildLenient converts records like Build but collects per-record errors
// instead of failing the batch. Invalid records are skipped and logged; the
// returned errors are in record order.
func BuildLenient(t *table.Table, opts BuildOptions) (*Collection, []error) {
	if opts.CRS == "" {
		opts.CRS = crs.WGS84
	}

	out := &Collection{CRS: opts.CRS}
	var errs []error
	for i, rec := range t.Records {
		f, err := buildOne(rec, opts, i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Features = append(out.Features, f)
	}
	if len(errs) > 0 {
		zap.L().Warn("feature: skipped invalid records",
			zap.Int("skipped", len(errs)),
			zap.Int("kept", out.Len()),
		)
	}
	return out, errs
}

func buildOne(rec table.Record, opts BuildOptions, idx int) (Feature, error) {
	lon, err := parseCoord(rec[opts.LonColumn], -180, 180)
	if err != nil {
		return Feature{}, eris.Wrapf(err, "record %d column %s", idx, opts.LonColumn)
	}
	lat, err := parseCoord(rec[opts.LatColumn], -90, 90)
	if err != nil {
		return Feature{}, eris.Wrapf(err, "record %d column %s", idx, opts.LatColumn)
	}

	attrs := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == opts.LonColumn || k == opts.LatColumn {
			continue
		}
		if n, numErr := strconv.ParseFloat(v, 64); numErr == nil {
			attrs[k] = n
		} else {
			attrs[k] = v
		}
	}

	pt := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(opts.CRS.Code())
	return Feature{Geometry: pt, Attrs: attrs}, nil
}

func parseCoord(s string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(ErrInvalidCoordinate, "%q is not numeric", s)
	}
	if v < min || v > max {
		return 0, eris.Wrapf(ErrInvalidCoordinate, "%g outside [%g, %g]", v, min, max)
	}
	return v, nil
}
