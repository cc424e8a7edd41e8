package utils

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DegreesPerKm is the flat-earth degree span used for proximity boxes.
// 0.03 deg/km deliberately overshoots 1/111 so the box never clips a
// report that a true geodesic circle would include at village scale.
const DegreesPerKm = 0.03

// ValidateCoordinates rejects non-finite or out-of-range WGS84 points.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return fmt.Errorf("coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return nil
}

// ProximityBound returns the axis-aligned box of radiusKm around a center.
// It is an approximation, not a geodesic circle; good enough for the few-km
// radii the nearby feed uses.
func ProximityBound(lat, lon, radiusKm float64) orb.Bound {
	d := DegreesPerKm * radiusKm
	return orb.Bound{
		Min: orb.Point{lon - d, lat - d},
		Max: orb.Point{lon + d, lat + d},
	}
}

// InBound reports whether the point lies inside the box, borders included.
func InBound(b orb.Bound, lat, lon float64) bool {
	return b.Contains(orb.Point{lon, lat})
}
