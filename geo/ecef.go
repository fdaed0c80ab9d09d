package geo

import "github.com/wroge/wgs84"

// Vec3 is an Earth-centred, Earth-fixed position in metres. Rendering
// adapters use it to place 3D globe models; the core engine itself
// works entirely in geographic degrees.
type Vec3 struct {
	X, Y, Z float64
}

// ECEF converts a geodetic point plus an altitude in metres to WGS84
// geocentric coordinates (EPSG:4326 -> EPSG:4978).
func ECEF(p Point, altMeters float64) Vec3 {
	f := wgs84.EPSG().Transform(4326, 4978)
	x, y, z := f(p.Lng, p.Lat, altMeters)
	return Vec3{X: x, Y: y, Z: z}
}
