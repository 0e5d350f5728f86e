package buffer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func TestBuild_EmptyPoints(t *testing.T) {
	b := NewBuilder(50_000)
	assert.Nil(t, b.Build(nil))
	assert.Nil(t, b.Build([]geom.Coord{}))
}

func TestBuild_OnePolygonPerPoint(t *testing.T) {
	b := NewBuilder(50_000)
	mp := b.Build([]geom.Coord{
		{-114.8, 32.5},
		{-110.0, 31.0},
		{-108.3, 29.2},
	})
	require.NotNil(t, mp)
	assert.Equal(t, 3, mp.NumPolygons())
	assert.Equal(t, 4326, mp.SRID())
}

func TestBuild_DefaultSegmentsWhenUnset(t *testing.T) {
	b := Builder{RadiusMeters: 50_000}
	mp := b.Build([]geom.Coord{{0, 0}})
	require.Equal(t, 1, mp.NumPolygons())

	ring := mp.Polygon(0).LinearRing(0)
	// Closed ring: one vertex per segment plus the repeated start point.
	assert.Equal(t, DefaultSegments+1, ring.NumCoords())
}

func TestBuild_RingClosed(t *testing.T) {
	mp := NewBuilder(10_000).Build([]geom.Coord{{-114.8, 32.5}})
	ring := mp.Polygon(0).LinearRing(0)

	first := ring.Coord(0)
	last := ring.Coord(ring.NumCoords() - 1)
	assert.InDelta(t, first[0], last[0], 1e-12)
	assert.InDelta(t, first[1], last[1], 1e-12)
}

func TestCircle_RadiusOnGround(t *testing.T) {
	const radius = 50_000.0
	tests := []struct {
		name     string
		lon, lat float64
	}{
		{name: "equator", lon: 0, lat: 0},
		{name: "mid latitude", lon: -114.8, lat: 32.5},
		{name: "high latitude", lon: 20, lat: 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poly := circle(tt.lon, tt.lat, radius, 64)
			ring := poly.LinearRing(0)
			for i := 0; i < ring.NumCoords(); i++ {
				c := ring.Coord(i)
				d := haversineM(tt.lon, tt.lat, c[0], c[1])
				assert.InDelta(t, radius, d, radius*0.001)
			}
		})
	}
}

func TestCircle_NorthSouthExtent(t *testing.T) {
	// The northernmost vertex of a 50km circle sits ~0.45 degrees above center.
	poly := circle(-100, 40, 50_000, 64)
	ring := poly.LinearRing(0)

	maxLat := -90.0
	for i := 0; i < ring.NumCoords(); i++ {
		if lat := ring.Coord(i)[1]; lat > maxLat {
			maxLat = lat
		}
	}
	assert.InDelta(t, 40+50_000/earthRadiusM*180/math.Pi, maxLat, 1e-6)
}

func TestDestination_LongitudeWrap(t *testing.T) {
	// Heading east from just west of the antimeridian must wrap to negative.
	lonRad := 179.9 * math.Pi / 180
	lon, _ := destination(lonRad, 0, 50_000/earthRadiusM, math.Pi/2)
	lonDeg := lon * 180 / math.Pi
	assert.Less(t, lonDeg, -179.0)
	assert.GreaterOrEqual(t, lonDeg, -180.0)
}

// haversineM returns the great-circle distance in meters on the same sphere
// the buffer construction uses.
func haversineM(lon1, lat1, lon2, lat2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}
