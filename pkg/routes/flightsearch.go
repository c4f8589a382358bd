package routes

import (
	"context"
	"fmt"
	"net/url"
)

// DefaultFlightSearchURL is the AirLabs API.
const DefaultFlightSearchURL = "https://airlabs.co/api/v9"

// FlightSearchSource queries a commercial flight-search API:
// GET {base}/flights?flight_icao={callsign}&flight_iata={iata}&api_key={key}.
// The first returned flight with both airports wins.
type FlightSearchSource struct {
	httpSource
}

// NewFlightSearchSource creates the flight-search source. Without an API key
// the source reports itself disabled.
func NewFlightSearchSource(cfg SourceConfig) *FlightSearchSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFlightSearchURL
	}
	return &FlightSearchSource{httpSource: newHTTPSource(SourceFlightSearch, cfg)}
}

// Enabled reports whether an API key is configured.
func (s *FlightSearchSource) Enabled() bool { return s.apiKey != "" }

// Lookup searches live flights by ICAO flight code.
func (s *FlightSearchSource) Lookup(ctx context.Context, callsign string) (*Route, error) {
	if !s.Enabled() || callsign == "" {
		return nil, nil
	}

	query := url.Values{}
	query.Set("flight_icao", callsign)
	if iata := iataFlightNumber(callsign); iata != "" {
		query.Set("flight_iata", iata)
	}
	query.Set("api_key", s.apiKey)

	body, err := s.getJSON(ctx, "/flights", query, nil)
	if err != nil {
		return nil, fmt.Errorf("%s lookup %s: %w", s.name, callsign, err)
	}

	// AirLabs reports failures in-band as {"error": {"message": ...}}.
	if root := object(body); root != nil {
		if apiErr := object(root["error"]); apiErr != nil {
			return nil, fmt.Errorf("%s lookup %s: %v", s.name, callsign, apiErr["message"])
		}
	}

	records := flightRecords(body)
	if len(records) == 0 {
		return nil, nil
	}
	return routeFromRecord(records[0], s.name), nil
}
