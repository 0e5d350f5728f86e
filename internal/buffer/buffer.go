// Package buffer turns occurrence coordinates into circular buffer coverage
// geometry. Circles are constructed geodesically, with each vertex a true
// destination point at the buffer radius along a bearing, so a 50 km buffer
// is 50 km on the ground at any latitude, instead of a fixed degree offset
// that stretches toward the poles.
package buffer

import (
	"math"

	geom "github.com/twpayne/go-geom"
)

// Mean Earth radius in meters, used for geodesic destination points.
const earthRadiusM = 6371008.8

// DefaultSegments is the vertex count per circle. 64 keeps the polygon
// within ~0.1% of the true circle area.
const DefaultSegments = 64

// Builder constructs buffer coverage geometry around occurrence points.
type Builder struct {
	RadiusMeters float64
	Segments     int
}

// NewBuilder returns a Builder with the given radius and default tessellation.
func NewBuilder(radiusMeters float64) Builder {
	return Builder{RadiusMeters: radiusMeters, Segments: DefaultSegments}
}

// Build returns the buffer coverage for the given lon/lat points: one
// circular polygon per point collected into a MultiPolygon. Overlap between
// circles is resolved downstream at rasterization, where a cell inside any
// polygon counts once. Returns nil for an empty point set, which downstream
// overlay treats as zero conserved area.
func (b Builder) Build(points []geom.Coord) *geom.MultiPolygon {
	if len(points) == 0 {
		return nil
	}

	segments := b.Segments
	if segments <= 0 {
		segments = DefaultSegments
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for _, p := range points {
		poly := circle(p[0], p[1], b.RadiusMeters, segments)
		if err := mp.Push(poly); err != nil {
			// Push only fails on layout mismatch, which circle() cannot produce.
			continue
		}
	}
	return mp
}

// circle builds a geodesic circle of the given radius around (lon, lat).
func circle(lon, lat, radiusM float64, segments int) *geom.Polygon {
	angDist := radiusM / earthRadiusM
	lonRad := lon * math.Pi / 180
	latRad := lat * math.Pi / 180

	flat := make([]float64, 0, (segments+1)*2)
	for i := 0; i <= segments; i++ {
		bearing := 2 * math.Pi * float64(i%segments) / float64(segments)
		dLon, dLat := destination(lonRad, latRad, angDist, bearing)
		flat = append(flat, dLon*180/math.Pi, dLat*180/math.Pi)
	}

	poly := geom.NewPolygon(geom.XY).SetSRID(4326)
	ring := geom.NewLinearRingFlat(geom.XY, flat)
	_ = poly.Push(ring)
	return poly
}

// destination solves the direct geodesic problem on a sphere: the point
// reached from (lonRad, latRad) after traveling angDist radians of arc
// along the given initial bearing.
func destination(lonRad, latRad, angDist, bearing float64) (lon, lat float64) {
	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	sinDist := math.Sin(angDist)
	cosDist := math.Cos(angDist)

	lat = math.Asin(sinLat*cosDist + cosLat*sinDist*math.Cos(bearing))
	lon = lonRad + math.Atan2(
		math.Sin(bearing)*sinDist*cosLat,
		cosDist-sinLat*math.Sin(lat),
	)

	// Keep longitude in [-180, 180).
	lon = math.Mod(lon+3*math.Pi, 2*math.Pi) - math.Pi
	return lon, lat
}
