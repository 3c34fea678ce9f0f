// Package geo provides great-circle distance and viewport radius helpers
package geo

import "math"

const (
	// earthRadiusKm is the mean Earth radius used by the haversine formula.
	earthRadiusKm = 6371.0

	// MaxRadiusKm is the largest search radius the observation source supports.
	MaxRadiusKm = 25.0

	// DefaultRadiusKm is used when no viewport bounds are available.
	DefaultRadiusKm = 25.0
)

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Bounds is a rectangular viewport described by its north-east and
// south-west corners.
type Bounds struct {
	NE Point
	SW Point
}

// Distance returns the haversine distance in kilometers between two
// coordinates given in decimal degrees. It is symmetric and returns 0
// for identical points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DistanceBetween returns the haversine distance in kilometers between
// two points.
func DistanceBetween(a, b Point) float64 {
	return Distance(a.Lat, a.Lng, b.Lat, b.Lng)
}

// ViewportRadius derives a query radius in kilometers from viewport
// bounds. The radius is half the larger of the east-west and
// north-south extents, clamped to MaxRadiusKm. Nil bounds yield
// DefaultRadiusKm.
func ViewportRadius(b *Bounds) float64 {
	if b == nil {
		return DefaultRadiusKm
	}

	eastWest := Distance(b.NE.Lat, b.NE.Lng, b.NE.Lat, b.SW.Lng)
	northSouth := Distance(b.NE.Lat, b.NE.Lng, b.SW.Lat, b.NE.Lng)

	return math.Min(math.Max(eastWest, northSouth)/2, MaxRadiusKm)
}

// IsValidLatLng reports whether the coordinate is within valid
// geographic ranges.
func IsValidLatLng(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
