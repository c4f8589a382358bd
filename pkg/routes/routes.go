// Package routes resolves a flight callsign to its origin and destination
// airports.
//
// Three upstream sources are consulted in turn: a free callsign route API,
// a commercial flight-number API and a commercial flight-search API. A
// Resolver caches every answer for the life of the process and learns, per
// airline, which source tends to answer first.
package routes

import (
	"context"
	"strings"
)

// Source names, in default try order.
const (
	SourcePrimary      = "primary"
	SourceFlightNumber = "flight_number"
	SourceFlightSearch = "flight_search"
)

// DefaultOrder is the cold-start try order and the tie-break order.
var DefaultOrder = []string{SourcePrimary, SourceFlightNumber, SourceFlightSearch}

// Route is a resolved origin/destination pair. Both codes are upper-case
// ICAO airport identifiers.
type Route struct {
	OriginICAO      string `json:"origin_icao"`
	DestinationICAO string `json:"destination_icao"`

	// Source is the name of the source that produced the route.
	Source string `json:"source"`
}

// Source looks up the route flown under a callsign.
//
// Lookup returns nil, nil when the source has no usable answer. An error
// means the call itself failed; callers treat it the same as no answer.
type Source interface {
	Name() string

	// Enabled reports whether the source can be queried at all (for
	// example, whether an API key was configured).
	Enabled() bool

	Lookup(ctx context.Context, callsign string) (*Route, error)
}

// NormalizeCallsign trims and upper-cases a callsign.
func NormalizeCallsign(callsign string) string {
	return strings.ToUpper(strings.TrimSpace(callsign))
}

// newRoute builds a route from raw airport codes. It returns nil unless
// both codes are present.
func newRoute(origin, destination, source string) *Route {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))
	if origin == "" || destination == "" {
		return nil
	}
	return &Route{
		OriginICAO:      origin,
		DestinationICAO: destination,
		Source:          source,
	}
}
