package routes

import (
	"context"
	"fmt"
	"net/url"
)

// DefaultPrimaryURL is the adsbdb API, which needs no key.
const DefaultPrimaryURL = "https://api.adsbdb.com/v0"

// PrimaryRouteContainers are the object paths searched, in order, for an
// origin/destination pair: the top level, "route", and adsbdb's
// "response.flightroute".
var PrimaryRouteContainers = [][]string{
	{},
	{"route"},
	{"response", "flightroute"},
}

// PrimarySource queries a free callsign route API:
// GET {base}/callsign/{callsign}.
type PrimarySource struct {
	httpSource
}

// NewPrimarySource creates the keyless callsign route source.
func NewPrimarySource(cfg SourceConfig) *PrimarySource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPrimaryURL
	}
	return &PrimarySource{httpSource: newHTTPSource(SourcePrimary, cfg)}
}

// Enabled reports whether a base URL is set. No credential is needed.
func (s *PrimarySource) Enabled() bool { return s.baseURL != "" }

// Lookup returns the route for a normalized callsign.
func (s *PrimarySource) Lookup(ctx context.Context, callsign string) (*Route, error) {
	if callsign == "" {
		return nil, nil
	}

	body, err := s.getJSON(ctx, "/callsign/"+url.PathEscape(callsign), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s lookup %s: %w", s.name, callsign, err)
	}

	root := object(body)
	if root == nil {
		// Unknown callsigns come back as {"response": "unknown callsign"}
		// or as a bare string; neither carries a route.
		return nil, nil
	}

	for _, container := range PrimaryRouteContainers {
		if route := routeFromRecord(path(root, container...), s.name); route != nil {
			return route, nil
		}
	}
	return nil, nil
}
