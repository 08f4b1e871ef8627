// Package crs resolves coordinate reference system identifiers to projection
// implementations and transforms geometries between them.
package crs

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Error kinds reported by CRS resolution and transformation. Callers match
// with eris.Is.
var (
	// ErrUnknown means an identifier could not be resolved to a projection.
	ErrUnknown = eris.New("crs: unknown identifier")
	// ErrNoTransform means both identifiers resolved but no transform path
	// exists between them.
	ErrNoTransform = eris.New("crs: no transform path")
	// ErrMismatch means a binary spatial operation received operands in
	// different coordinate reference systems.
	ErrMismatch = eris.New("crs: mismatched coordinate reference systems")
	// ErrUnsuitableUnit means an operation requiring linear units was asked
	// to run in a degree-based coordinate reference system.
	ErrUnsuitableUnit = eris.New("crs: unsuitable unit for operation")
)

// ID identifies a coordinate reference system as an authority:code pair,
// e.g. "EPSG:4326". Two IDs are equal only by exact string match; no
// semantic equivalence of projections is attempted.
type ID string

// Well-known identifiers.
const (
	WGS84       ID = "EPSG:4326" // geographic lon/lat, degrees
	WebMercator ID = "EPSG:3857" // spherical Mercator, meters
	TWD97       ID = "EPSG:3826" // Taiwan TM2, meters
	Local       ID = "LOCAL:px"  // non-georeferenced pixel space
)

// EPSG returns the ID for a numeric EPSG code.
func EPSG(code int) ID {
	return ID("EPSG:" + strconv.Itoa(code))
}

// Code returns the numeric EPSG code of the identifier, or 0 when the
// authority is not EPSG or the code is malformed.
func (id ID) Code() int {
	rest, ok := strings.CutPrefix(string(id), "EPSG:")
	if !ok {
		return 0
	}
	code, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return code
}

// Unit is the linear unit of a projected axis.
type Unit int

const (
	UnitDegree Unit = iota
	UnitMeter
)

// String implements fmt.Stringer.
func (u Unit) String() string {
	if u == UnitDegree {
		return "degree"
	}
	return "meter"
}
