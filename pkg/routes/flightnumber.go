package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/unklstewy/skyroute/pkg/adsb"
)

// DefaultFlightNumberURL is the AeroDataBox API on RapidAPI.
const DefaultFlightNumberURL = "https://aerodatabox.p.rapidapi.com"

// FlightNumberSource queries a commercial flight-number API:
// GET {base}/flights/number/{flight}, authenticated with RapidAPI headers.
//
// Callsigns are tried first in ICAO form and then in IATA form, because
// some upstreams only index one of them.
type FlightNumberSource struct {
	httpSource
	host string
}

// NewFlightNumberSource creates the flight-number source. Without an API key
// the source reports itself disabled.
func NewFlightNumberSource(cfg SourceConfig) *FlightNumberSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFlightNumberURL
	}
	src := &FlightNumberSource{httpSource: newHTTPSource(SourceFlightNumber, cfg)}
	if u, err := url.Parse(src.baseURL); err == nil {
		src.host = u.Host
	}
	return src
}

// Enabled reports whether an API key is configured.
func (s *FlightNumberSource) Enabled() bool { return s.apiKey != "" }

// Lookup tries each flight-number candidate in turn and returns the first
// record carrying both airports. A failed candidate does not stop the next
// one, except on a rate limit. If nothing matched and a candidate failed,
// the last failure is returned.
func (s *FlightNumberSource) Lookup(ctx context.Context, callsign string) (*Route, error) {
	if !s.Enabled() {
		return nil, nil
	}

	header := http.Header{}
	header.Set("X-RapidAPI-Key", s.apiKey)
	if s.host != "" {
		header.Set("X-RapidAPI-Host", s.host)
	}

	var lastErr error
	for _, candidate := range FlightNumberCandidates(callsign) {
		body, err := s.getJSON(ctx, "/flights/number/"+url.PathEscape(candidate), nil, header)
		if err != nil {
			lastErr = fmt.Errorf("%s lookup %s: %w", s.name, candidate, err)
			if _, ok := adsb.IsRateLimitError(err); ok || ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		for _, record := range flightRecords(body) {
			if route := routeFromRecord(record, s.name); route != nil {
				return route, nil
			}
		}
	}

	return nil, lastErr
}
