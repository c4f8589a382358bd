package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/skyroute/pkg/adsb"
)

// maxResponseBytes caps how much of an upstream response is read.
const maxResponseBytes = 4 << 20

// SourceConfig configures one HTTP route source.
type SourceConfig struct {
	BaseURL string

	// APIKey authenticates commercial sources. Empty disables them.
	APIKey string

	// Timeout bounds each upstream call (default: 10s)
	Timeout time.Duration

	// RequestsPerMinute caps the call rate (0 = unlimited)
	RequestsPerMinute float64

	// HTTPClient overrides the default client. Its timeout is left alone.
	HTTPClient *http.Client
}

// httpSource holds the transport shared by all HTTP route sources.
type httpSource struct {
	name        string
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

func newHTTPSource(name string, cfg SourceConfig) httpSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(cfg.RequestsPerMinute / 60.0)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return httpSource{
		name:        name,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		httpClient:  client,
		rateLimiter: rate.NewLimiter(limit, 1),
	}
}

func (s *httpSource) Name() string { return s.name }

// getJSON performs a rate limited GET and decodes the body.
// A nil value with a nil error means 404 or 204: nothing known upstream.
// HTTP 429 is returned as an *adsb.RateLimitError.
func (s *httpSource) getJSON(ctx context.Context, endpoint string, query url.Values, header http.Header) (any, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := s.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, adsb.NewRateLimitError(resp)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return decoded, nil
}
