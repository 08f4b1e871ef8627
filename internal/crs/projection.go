package crs

import "math"

// Projection converts between a CRS's native coordinates and WGS84
// longitude/latitude degrees. All built-in transforms pivot through WGS84.
type Projection interface {
	// ToWGS84 converts native coordinates to lon/lat degrees.
	ToWGS84(x, y float64) (lon, lat float64)

	// FromWGS84 converts lon/lat degrees to native coordinates.
	FromWGS84(lon, lat float64) (x, y float64)

	// Unit reports the axis unit of the native coordinates.
	Unit() Unit
}

// geographic is the identity projection for data already in lon/lat degrees.
type geographic struct{}

func (geographic) ToWGS84(x, y float64) (float64, float64)       { return x, y }
func (geographic) FromWGS84(lon, lat float64) (float64, float64) { return lon, lat }
func (geographic) Unit() Unit                                    { return UnitDegree }

const earthRadius = 6378137.0

// webMercator is spherical Mercator as used by web map tiles.
type webMercator struct{}

func (webMercator) ToWGS84(x, y float64) (float64, float64) {
	lon := x / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

func (webMercator) FromWGS84(lon, lat float64) (float64, float64) {
	x := earthRadius * lon * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

func (webMercator) Unit() Unit { return UnitMeter }

// transverseMercator is an ellipsoidal Transverse Mercator projection using
// the standard Snyder series expansions. It covers UTM zones and national
// TM grids such as TWD97.
type transverseMercator struct {
	a    float64 // semi-major axis
	f    float64 // flattening
	k0   float64 // central scale factor
	lon0 float64 // central meridian, degrees
	fe   float64 // false easting
	fn   float64 // false northing
}

func (tm transverseMercator) Unit() Unit { return UnitMeter }

func (tm transverseMercator) e2() float64 { return tm.f * (2 - tm.f) }

// meridionalArc returns the distance along the meridian from the equator.
func (tm transverseMercator) meridionalArc(lat float64) float64 {
	e2 := tm.e2()
	e4 := e2 * e2
	e6 := e4 * e2
	return tm.a * ((1-e2/4-3*e4/64-5*e6/256)*lat -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*lat) +
		(15*e4/256+45*e6/1024)*math.Sin(4*lat) -
		(35*e6/3072)*math.Sin(6*lat))
}

func (tm transverseMercator) FromWGS84(lon, lat float64) (float64, float64) {
	phi := lat * math.Pi / 180
	lam := (lon - tm.lon0) * math.Pi / 180

	e2 := tm.e2()
	ep2 := e2 / (1 - e2)
	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	tanPhi := sinPhi / cosPhi

	n := tm.a / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := cosPhi * lam
	a2, a3 := a*a, a*a*a
	a4, a5, a6 := a2*a2, a2*a3, a3*a3

	m := tm.meridionalArc(phi)

	x := tm.fe + tm.k0*n*(a+(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)
	y := tm.fn + tm.k0*(m+n*tanPhi*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))
	return x, y
}

func (tm transverseMercator) ToWGS84(x, y float64) (float64, float64) {
	e2 := tm.e2()
	ep2 := e2 / (1 - e2)

	m := (y - tm.fn) / tm.k0
	mu := m / (tm.a * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu + (3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sin1, cos1 := math.Sin(phi1), math.Cos(phi1)
	tan1 := sin1 / cos1
	c1 := ep2 * cos1 * cos1
	t1 := tan1 * tan1
	n1 := tm.a / math.Sqrt(1-e2*sin1*sin1)
	r1 := tm.a * (1 - e2) / math.Pow(1-e2*sin1*sin1, 1.5)
	d := (x - tm.fe) / (n1 * tm.k0)
	d2, d3 := d*d, d*d*d
	d4, d5, d6 := d2*d2, d2*d3, d3*d3

	phi := phi1 - (n1*tan1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)
	lam := (d - (1+2*t1+c1)*d3/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120) / cos1

	lat := phi * 180 / math.Pi
	lon := tm.lon0 + lam*180/math.Pi
	return lon, lat
}

// WGS84 ellipsoid parameters (UTM) and GRS80 (TWD97).
const (
	wgs84SemiMajor  = 6378137.0
	wgs84Flattening = 1 / 298.257223563
	grs80Flattening = 1 / 298.257222101
)

// utmZone builds the projection for a WGS84 UTM zone.
func utmZone(zone int, north bool) Projection {
	fn := 0.0
	if !north {
		fn = 10000000.0
	}
	return transverseMercator{
		a:    wgs84SemiMajor,
		f:    wgs84Flattening,
		k0:   0.9996,
		lon0: float64(zone*6 - 183),
		fe:   500000,
		fn:   fn,
	}
}

// twd97 is the Taiwan Datum 1997 TM2 grid (central meridian 121°E).
func twd97() Projection {
	return transverseMercator{
		a:    wgs84SemiMajor,
		f:    grs80Flattening,
		k0:   0.9999,
		lon0: 121,
		fe:   250000,
		fn:   0,
	}
}
