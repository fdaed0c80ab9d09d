// Package geo provides the spherical-Earth math used by the animation
// engine: haversine distances, initial bearings, and great-circle
// interpolation. All functions are pure and deterministic.
package geo

import "math"

// EarthRadiusMeters is the sphere radius used for all distance and
// interpolation math (WGS84 equatorial radius).
const EarthRadiusMeters = 6378137.0

// Point is a geographic position in WGS84 degrees.
type Point struct {
	Lng float64
	Lat float64
}

// Valid reports whether the point carries finite, in-range coordinates.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lng) || math.IsNaN(p.Lat) || math.IsInf(p.Lng, 0) || math.IsInf(p.Lat, 0) {
		return false
	}
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle (haversine) distance between two
// points in metres.
func Distance(a, b Point) float64 {
	latA := radians(a.Lat)
	latB := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bearing returns the initial bearing from one point toward another in
// degrees [0, 360), with 0 due north increasing clockwise. The second
// return value is false when no direction exists (coincident or
// antipodal-degenerate inputs); callers should keep their previous
// heading in that case.
func Bearing(from, to Point) (float64, bool) {
	if !from.Valid() || !to.Valid() {
		return 0, false
	}
	if from.Lng == to.Lng && from.Lat == to.Lat {
		return 0, false
	}

	latA := radians(from.Lat)
	latB := radians(to.Lat)
	dLng := radians(to.Lng - from.Lng)

	y := math.Sin(dLng) * math.Cos(latB)
	x := math.Cos(latA)*math.Sin(latB) - math.Sin(latA)*math.Cos(latB)*math.Cos(dLng)
	if y == 0 && x == 0 {
		return 0, false
	}

	deg := math.Mod(degrees(math.Atan2(y, x))+360, 360)
	return deg, true
}

// PositionAlongGreatCircle interpolates along the shortest great-circle
// arc between two points. t is clamped to [0, 1]; the endpoints are
// returned exactly at t=0 and t=1. Spherical interpolation is used
// rather than linear lng/lat blending, which would bend paths near the
// poles and the antimeridian.
func PositionAlongGreatCircle(from, to Point, t float64) Point {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}

	latA := radians(from.Lat)
	lngA := radians(from.Lng)
	latB := radians(to.Lat)
	lngB := radians(to.Lng)

	// Angular distance between the endpoints.
	d := Distance(from, to) / EarthRadiusMeters
	sinD := math.Sin(d)
	if d == 0 || sinD == 0 {
		// Coincident or antipodal; no unique arc to interpolate on.
		return from
	}

	a := math.Sin((1-t)*d) / sinD
	b := math.Sin(t*d) / sinD

	x := a*math.Cos(latA)*math.Cos(lngA) + b*math.Cos(latB)*math.Cos(lngB)
	y := a*math.Cos(latA)*math.Sin(lngA) + b*math.Cos(latB)*math.Sin(lngB)
	z := a*math.Sin(latA) + b*math.Sin(latB)

	lat := math.Atan2(z, math.Sqrt(x*x+y*y))
	lng := math.Atan2(y, x)
	return Point{Lng: degrees(lng), Lat: degrees(lat)}
}

// PolylineLength returns the summed great-circle length of a path in
// metres. Paths with fewer than two vertices have zero length.
func PolylineLength(path []Point) float64 {
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		total += Distance(path[i], path[i+1])
	}
	return total
}

// PositionAlongPolyline samples a position at fraction t of the total
// great-circle length of the path. Empty paths return the zero Point,
// single-point paths return the sole vertex, and t outside [0, 1] pins
// to the first or last vertex.
func PositionAlongPolyline(path []Point, t float64) Point {
	switch len(path) {
	case 0:
		return Point{}
	case 1:
		return path[0]
	}
	if t <= 0 {
		return path[0]
	}
	if t >= 1 {
		return path[len(path)-1]
	}

	total := 0.0
	lengths := make([]float64, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		lengths[i] = Distance(path[i], path[i+1])
		total += lengths[i]
	}
	if total == 0 {
		return path[0]
	}

	target := t * total
	walked := 0.0
	for i, segLen := range lengths {
		if walked+segLen >= target {
			if segLen == 0 {
				return path[i]
			}
			frac := (target - walked) / segLen
			return PositionAlongGreatCircle(path[i], path[i+1], frac)
		}
		walked += segLen
	}
	return path[len(path)-1]
}
