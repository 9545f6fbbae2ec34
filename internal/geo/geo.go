// Package geo holds the coordinate math for spot obfuscation.
package geo

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// earthRadiusMeters is the mean Earth radius used for the
// meter-to-degree conversion.
const earthRadiusMeters = 6371000

// Fuzz returns a point drawn uniformly from the disk of radiusMeters
// around (lat, lng). The offset distance is r*sqrt(u) so points do not
// cluster near the center, and the longitude delta is scaled by
// 1/cos(lat) to account for meridian convergence away from the
// equator. Every call draws fresh randomness; callers that need a
// stable fuzzy view must cache the result themselves.
func Fuzz(lat, lng float64, radiusMeters int) (float64, float64) {
	distance := float64(radiusMeters) * math.Sqrt(rand.Float64())
	angle := rand.Float64() * 2 * math.Pi

	latOffset := (distance * math.Cos(angle)) / earthRadiusMeters * (180 / math.Pi)

	// Meridians converge at the poles, so the 1/cos(lat) scale blows
	// up there. Within ~1 km of a pole a longitude offset no longer
	// moves the point in any meaningful way; keep the longitude as is.
	var lngOffset float64
	if math.Abs(lat) < 89.99 {
		lngOffset = (distance * math.Sin(angle)) / (earthRadiusMeters * math.Cos(lat*math.Pi/180)) * (180 / math.Pi)
	}

	fuzzyLat := lat + latOffset
	fuzzyLng := lng + lngOffset

	// Latitude is clamped; longitude is wrapped, never clamped, so
	// points near the antimeridian stay uniformly distributed.
	fuzzyLat = math.Max(-90, math.Min(90, fuzzyLat))
	fuzzyLng = math.Mod(fuzzyLng+180, 360)
	if fuzzyLng < 0 {
		fuzzyLng += 360
	}
	fuzzyLng -= 180
	if fuzzyLng == -180 {
		fuzzyLng = 180
	}

	return fuzzyLat, fuzzyLng
}

// ValidateCoordinates rejects latitudes outside [-90, 90] and
// longitudes outside [-180, 180]. Both boundary values are valid.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("Coordinates must be numeric values.")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("Latitude must be between -90 and 90. Got: %v", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("Longitude must be between -180 and 180. Got: %v", lng)
	}
	return nil
}

// Distance returns the great-circle distance in meters between two
// points, using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
