package adsb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/skyroute/pkg/coordinates"
)

const (
	// DefaultFeedURL is the airplanes.live v2 API. adsb.lol serves the same
	// /point endpoint and payload.
	DefaultFeedURL = "https://api.airplanes.live/v2"

	// MaxRadiusNM is the largest radius the /point endpoint accepts.
	MaxRadiusNM = 250.0
)

// FeedClient implements DataSource for airplanes.live style APIs.
// API Documentation: https://airplanes.live/api-guide/
// Rate Limit: 1 request per second
type FeedClient struct {
	// baseURL is the API base URL (default: https://api.airplanes.live/v2)
	baseURL string

	// httpClient is the HTTP client used for API requests
	httpClient *http.Client

	// rateLimiter spaces out requests to the upstream limit
	rateLimiter *rate.Limiter
}

// FeedConfig contains configuration for the feed client.
type FeedConfig struct {
	BaseURL string

	// MinInterval is the minimum time between requests (default: 1s)
	MinInterval time.Duration

	Timeout time.Duration
}

// NewFeedClient creates a new feed client.
func NewFeedClient(cfg FeedConfig) *FeedClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFeedURL
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &FeedClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}
}

// GetAircraft returns all aircraft within a radius of a given point.
// Uses the /point/[lat]/[lon]/[radius] endpoint; radius is capped at 250 NM.
// Aircraft without a reported position are kept with a nil Position.
func (c *FeedClient) GetAircraft(ctx context.Context, centerLat, centerLon, radiusNM float64) ([]Aircraft, error) {
	if radiusNM > MaxRadiusNM {
		radiusNM = MaxRadiusNM
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/point/%.4f/%.4f/%.0f", c.baseURL, centerLat, centerLon, radiusNM)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch aircraft data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewRateLimitError(resp)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	now := time.Now().UTC()
	aircraft := make([]Aircraft, 0, len(apiResp.Aircraft))
	for _, ac := range apiResp.Aircraft {
		aircraft = append(aircraft, convertFeedAircraft(ac, now))
	}

	return aircraft, nil
}

// Close cleanly shuts down the client.
// There are no persistent connections, so this is a no-op.
func (c *FeedClient) Close() error {
	return nil
}

// feedResponse represents the JSON response from the /point endpoint.
type feedResponse struct {
	Aircraft []feedAircraft `json:"ac"`
	Total    int            `json:"total"`
	Now      float64        `json:"now"`
}

// feedAircraft represents a single aircraft in the feed response.
// Field documentation: https://airplanes.live/adsb-field-explanations/
type feedAircraft struct {
	Hex    string  `json:"hex"`
	Flight *string `json:"flight"`

	// Registration and type designator use terse keys upstream
	Registration string `json:"r"`
	Type         string `json:"t"`
	Operator     string `json:"ownOp"`

	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`

	// Can be the string "ground" or a number
	AltBaro any `json:"alt_baro"`
	AltGeom any `json:"alt_geom"`

	Gs       *float64 `json:"gs"`
	Track    *float64 `json:"track"`
	BaroRate *float64 `json:"baro_rate"`

	// Seen is seconds since last message
	Seen *float64 `json:"seen"`
}

// convertFeedAircraft converts a feed aircraft to our Aircraft type.
func convertFeedAircraft(ac feedAircraft, now time.Time) Aircraft {
	aircraft := Aircraft{
		Hex:          ac.Hex,
		Registration: strings.TrimSpace(ac.Registration),
		Model:        strings.TrimSpace(ac.Type),
		Airline:      strings.TrimSpace(ac.Operator),
		GroundSpeed:  ac.Gs,
		Track:        ac.Track,
		VerticalRate: ac.BaroRate,
	}

	// Callsigns are space padded to 8 characters
	if ac.Flight != nil {
		aircraft.Callsign = strings.TrimSpace(*ac.Flight)
	}

	if ac.Lat != nil && ac.Lon != nil {
		aircraft.Position = &coordinates.Geographic{
			Latitude:  *ac.Lat,
			Longitude: *ac.Lon,
		}
	}

	// Prefer barometric altitude, which is what ATC and displays use
	alt, ground := parseAltitude(ac.AltBaro)
	if alt == nil {
		alt, ground = parseAltitude(ac.AltGeom)
	}
	aircraft.Altitude = alt
	aircraft.OnGround = ground

	if ac.Seen != nil {
		aircraft.LastSeen = now.Add(-time.Duration(*ac.Seen * float64(time.Second)))
	} else {
		aircraft.LastSeen = now
	}

	return aircraft
}

// parseAltitude safely extracts altitude from a value which can be float64 or string.
// Returns nil if the value is invalid; "ground" is reported as 0 and ground=true.
func parseAltitude(val any) (alt *float64, ground bool) {
	switch v := val.(type) {
	case float64:
		return &v, false
	case string:
		if v == "ground" {
			zero := 0.0
			return &zero, true
		}
		return nil, false
	default:
		return nil, false
	}
}
