// Package geo provides the planar projection and polyline geometry used to
// place stops along route shapes.
package geo

import "math"

// Projector maps a geographic coordinate to a planar (x, y) pair in feet.
type Projector func(lon float64, lat float64) (x float64, y float64)

const (
	feetToMeters = 0.3048006096012192

	// GRS80 ellipsoid
	semiMajorAxis = 6378137.0
	flattening    = 1.0 / 298.257222101
)

// lambertConic holds the derived constants for a Lambert conformal conic
// projection with two standard parallels.
type lambertConic struct {
	e            float64
	n            float64
	f            float64
	rho0         float64
	originLonRad float64
	falseEasting float64
	falseNorth   float64
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// tsfn computes the isometric latitude function t for the ellipsoid.
func tsfn(phi, e float64) float64 {
	sinPhi := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) /
		math.Pow((1-e*sinPhi)/(1+e*sinPhi), e/2)
}

// msfn computes the scale function m for the ellipsoid.
func msfn(phi, e float64) float64 {
	sinPhi := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e*e*sinPhi*sinPhi)
}

func newLambertConic(originLon, originLat, parallel1, parallel2, falseEasting, falseNorthing float64) *lambertConic {
	e := math.Sqrt(2*flattening - flattening*flattening)

	phi0 := radians(originLat)
	phi1 := radians(parallel1)
	phi2 := radians(parallel2)

	m1 := msfn(phi1, e)
	m2 := msfn(phi2, e)
	t0 := tsfn(phi0, e)
	t1 := tsfn(phi1, e)
	t2 := tsfn(phi2, e)

	n := (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	f := m1 / (n * math.Pow(t1, n))

	return &lambertConic{
		e:            e,
		n:            n,
		f:            f,
		rho0:         semiMajorAxis * f * math.Pow(t0, n),
		originLonRad: radians(originLon),
		falseEasting: falseEasting,
		falseNorth:   falseNorthing,
	}
}

// project maps lon/lat in degrees to planar meters.
func (l *lambertConic) project(lon, lat float64) (float64, float64) {
	t := tsfn(radians(lat), l.e)
	rho := semiMajorAxis * l.f * math.Pow(t, l.n)
	theta := l.n * (radians(lon) - l.originLonRad)

	x := l.falseEasting + rho*math.Sin(theta)
	y := l.falseNorth + l.rho0 - rho*math.Cos(theta)
	return x, y
}

// NewCaliforniaZone3Projector builds the projector used for agency
// coordinates: NAD83 Lambert conformal conic centered on longitude -120.5
// with standard parallels 38.43333333333 and 37.066666666667, origin
// latitude 36.5, false easting 2,000,000m and false northing 500,000m.
// Output is converted from meters to feet.
func NewCaliforniaZone3Projector() Projector {
	lcc := newLambertConic(-120.5, 36.5, 38.43333333333, 37.066666666667, 2000000, 500000)
	return func(lon, lat float64) (float64, float64) {
		xMeters, yMeters := lcc.project(lon, lat)
		return xMeters / feetToMeters, yMeters / feetToMeters
	}
}
