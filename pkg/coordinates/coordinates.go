// Package coordinates provides the great-circle geometry used to place
// aircraft relative to an observer: bearing, distance and compass direction.
package coordinates

import (
	"math"
)

// Constants for coordinate calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusKm is the Earth's radius in kilometers (mean radius)
	EarthRadiusKm = 6371.0

	// KmPerNauticalMile is the length of one nautical mile in kilometers
	KmPerNauticalMile = 1.852
)

// CompassPoints lists the 8-point compass clockwise from north.
var CompassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Geographic represents a position on Earth's surface.
// Values are taken as-is from the feed; nothing is range checked.
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level (MSL). Not used by the
	// surface calculations below.
	Altitude float64
}

// ToRadians converts the Geographic coordinates to radians.
// Returns (latRad, lonRad, altMeters).
func (g Geographic) ToRadians() (float64, float64, float64) {
	return g.Latitude * DegreesToRadians,
		g.Longitude * DegreesToRadians,
		g.Altitude
}

// NormalizeAzimuth ensures azimuth is in the range [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	// A tiny negative remainder rounds up to exactly 360 above.
	if az >= 360.0 {
		az -= 360.0
	}
	return az
}

// Bearing calculates the initial bearing (forward azimuth) from one point to another.
// Uses spherical trigonometry to calculate the bearing along a great circle.
// Returns bearing in degrees [0, 360), where 0 = North, 90 = East, 180 = South, 270 = West.
// The bearing from a point to itself is 0.
func Bearing(from, to Geographic) float64 {
	lat1, lon1, _ := from.ToRadians()
	lat2, lon2, _ := to.ToRadians()

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(y, x) * RadiansToDegrees

	return NormalizeAzimuth(bearing)
}

// DistanceKm calculates the great-circle distance between two points
// using the haversine formula. Returns kilometers.
func DistanceKm(from, to Geographic) float64 {
	lat1Rad, lon1Rad, _ := from.ToRadians()
	lat2Rad, lon2Rad, _ := to.ToRadians()

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// KmToNauticalMiles converts a distance in kilometers to nautical miles.
func KmToNauticalMiles(km float64) float64 {
	return km / KmPerNauticalMile
}

// Direction buckets a bearing into one of the 8 compass points.
// Each bucket is 45° wide and centered on its point, so 337.5-22.5 is "N".
func Direction(bearing float64) string {
	idx := int(math.Floor((NormalizeAzimuth(bearing)+22.5)/45.0)) % len(CompassPoints)
	return CompassPoints[idx]
}

// Observation is where a target sits relative to an observer.
// All fields are nil when either position is unknown.
type Observation struct {
	Bearing    *float64
	Direction  *string
	DistanceKm *float64
}

// Observe computes the observation of target from observer.
// A nil observer or target yields an empty Observation rather than
// a computed one.
func Observe(observer, target *Geographic) Observation {
	if observer == nil || target == nil {
		return Observation{}
	}

	bearing := Bearing(*observer, *target)
	direction := Direction(bearing)
	distance := DistanceKm(*observer, *target)

	return Observation{
		Bearing:    &bearing,
		Direction:  &direction,
		DistanceKm: &distance,
	}
}
