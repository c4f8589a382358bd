package adsb

import (
	"context"
	"time"

	"github.com/unklstewy/skyroute/pkg/coordinates"
)

// Aircraft is a raw record from the live traffic feed.
// Optional fields are pointers; nil means the feed did not report them.
type Aircraft struct {
	// Hex is the unique 24-bit ICAO aircraft address (e.g., "a12345")
	Hex string

	// Callsign is the flight number or registration as broadcast,
	// trimmed of the padding the feed adds
	Callsign string

	// Registration is the tail number (e.g., "C-FIUA")
	Registration string

	// Model is the ICAO aircraft type designator (e.g., "B38M")
	Model string

	// Airline is the operator name when the feed knows it
	Airline string

	// Position in decimal degrees. Nil when the aircraft has not
	// reported a position yet.
	Position *coordinates.Geographic

	// Altitude in feet above mean sea level (MSL); 0 when on ground
	Altitude *float64

	// GroundSpeed in knots
	GroundSpeed *float64

	// Track is the ground track (heading) in degrees (0-359)
	// 0 = North, 90 = East, 180 = South, 270 = West
	Track *float64

	// VerticalRate in feet per minute (positive = climbing, negative = descending)
	VerticalRate *float64

	// OnGround is set when the feed reports altitude "ground"
	OnGround bool

	// LastSeen is the timestamp of the last update
	LastSeen time.Time
}

// DataSource is implemented by anything that can list aircraft around a point.
type DataSource interface {
	// GetAircraft returns all currently tracked aircraft within radiusNM
	// nautical miles of centerLat/centerLon (decimal degrees).
	GetAircraft(ctx context.Context, centerLat, centerLon, radiusNM float64) ([]Aircraft, error)

	// Close cleanly shuts down the data source connection.
	Close() error
}
