package refdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds a single reference table download.
const DefaultTimeout = 20 * time.Second

// Fetcher opens a reference table by location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// LocationFetcher downloads http(s) locations and reads anything else from disk.
type LocationFetcher struct {
	httpClient *http.Client
}

// NewLocationFetcher creates a fetcher whose downloads time out after timeout.
func NewLocationFetcher(timeout time.Duration) *LocationFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LocationFetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the table body. The caller closes it.
func (f *LocationFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("empty location")
	}

	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		file, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", location, resp.StatusCode)
	}

	return resp.Body, nil
}
