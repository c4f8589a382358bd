package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/skyroute/pkg/adsb"
)

func TestPrimarySource(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *Route
	}{
		{
			name:   "top level pair",
			status: http.StatusOK,
			body:   `{"origin": "cyyz", "destination": "klax"}`,
			want:   &Route{OriginICAO: "CYYZ", DestinationICAO: "KLAX", Source: SourcePrimary},
		},
		{
			name:   "nested route",
			status: http.StatusOK,
			body:   `{"route": {"origin": {"icao": "EGLL"}, "destination": {"icaoCode": "KJFK"}}}`,
			want:   &Route{OriginICAO: "EGLL", DestinationICAO: "KJFK", Source: SourcePrimary},
		},
		{
			name:   "adsbdb flightroute",
			status: http.StatusOK,
			body: `{"response": {"flightroute": {
				"callsign": "ACA123",
				"origin": {"icao_code": "CYYZ", "municipality": "Toronto"},
				"destination": {"icao_code": "KLAX", "municipality": "Los Angeles"}}}}`,
			want: &Route{OriginICAO: "CYYZ", DestinationICAO: "KLAX", Source: SourcePrimary},
		},
		{
			name:   "missing destination",
			status: http.StatusOK,
			body:   `{"origin": "CYYZ"}`,
		},
		{
			name:   "unknown callsign",
			status: http.StatusOK,
			body:   `{"response": "unknown callsign"}`,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"response": "unknown callsign"}`,
		},
		{
			name:   "array payload",
			status: http.StatusOK,
			body:   `[1, 2, 3]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v0/callsign/ACA123", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			src := NewPrimarySource(SourceConfig{BaseURL: server.URL + "/v0/"})
			require.True(t, src.Enabled())

			route, err := src.Lookup(context.Background(), "ACA123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, route)
		})
	}
}

func TestPrimarySourceErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewPrimarySource(SourceConfig{BaseURL: server.URL}).Lookup(context.Background(), "ACA123")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := NewPrimarySource(SourceConfig{BaseURL: server.URL}).Lookup(context.Background(), "ACA123")
		rle, ok := adsb.IsRateLimitError(err)
		require.True(t, ok)
		assert.Equal(t, 30.0, rle.RetryAfter.Seconds())
	})

	t.Run("malformed json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"origin":`))
		}))
		defer server.Close()

		_, err := NewPrimarySource(SourceConfig{BaseURL: server.URL}).Lookup(context.Background(), "ACA123")
		assert.Error(t, err)
	})
}

func TestFlightNumberSourceDisabledWithoutKey(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	src := NewFlightNumberSource(SourceConfig{BaseURL: server.URL, APIKey: "  "})
	assert.False(t, src.Enabled())

	route, err := src.Lookup(context.Background(), "ACA123")
	assert.NoError(t, err)
	assert.Nil(t, route)
	assert.Zero(t, calls.Load())
}

func TestFlightNumberSourceFallsBackToIATA(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		assert.NotEmpty(t, r.Header.Get("X-RapidAPI-Host"))

		switch r.URL.Path {
		case "/flights/number/ACA123":
			w.WriteHeader(http.StatusNotFound)
		case "/flights/number/AC123":
			_, _ = w.Write([]byte(`[
				{"number": "AC 123", "departure": {"airport": {"icao": "cyyz"}}, "arrival": {"airport": {}}},
				{"number": "AC 123", "departure": {"airport": {"icao": "cyyz"}}, "arrival": {"airport": {"icao": "klax"}}}
			]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	src := NewFlightNumberSource(SourceConfig{BaseURL: server.URL, APIKey: "secret"})
	route, err := src.Lookup(context.Background(), "ACA123")
	require.NoError(t, err)
	assert.Equal(t, &Route{OriginICAO: "CYYZ", DestinationICAO: "KLAX", Source: SourceFlightNumber}, route)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/flights/number/ACA123", "/flights/number/AC123"}, paths)
}

func TestFlightNumberSourceStopsAtFirstMatch(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"flights": [{"origin_icao": "EGLL", "destination_icao": "KJFK"}]}`))
	}))
	defer server.Close()

	src := NewFlightNumberSource(SourceConfig{BaseURL: server.URL, APIKey: "k"})
	route, err := src.Lookup(context.Background(), "BAW117")
	require.NoError(t, err)
	require.NotNil(t, route)
	assert.Equal(t, "EGLL", route.OriginICAO)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFlightNumberSourceNoCandidates(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	src := NewFlightNumberSource(SourceConfig{BaseURL: server.URL, APIKey: "k"})
	route, err := src.Lookup(context.Background(), "N839AL")
	assert.NoError(t, err)
	assert.Nil(t, route)
	assert.Zero(t, calls.Load())
}

func TestFlightNumberSourceReportsLastError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewFlightNumberSource(SourceConfig{BaseURL: server.URL, APIKey: "k"})
	route, err := src.Lookup(context.Background(), "ACA123")
	assert.Error(t, err)
	assert.Nil(t, route)
	// Both candidates were attempted.
	assert.Equal(t, int32(2), calls.Load())
}

func TestFlightSearchSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/flights", r.URL.Path)
		assert.Equal(t, "key", q.Get("api_key"))

		switch q.Get("flight_icao") {
		case "ACA123":
			assert.Equal(t, "AC123", q.Get("flight_iata"))
			_, _ = w.Write([]byte(`{"request": {}, "response": [
				{"flight_icao": "ACA123", "dep_icao": "cyyz", "arr_icao": "klax"},
				{"flight_icao": "ACA123", "dep_icao": "CYUL", "arr_icao": "KSFO"}
			]}`))
		case "XYZ42":
			assert.Empty(t, q.Get("flight_iata"))
			_, _ = w.Write([]byte(`{"response": []}`))
		case "GONE1":
			w.WriteHeader(http.StatusNotFound)
		case "ERR1":
			_, _ = w.Write([]byte(`{"error": {"message": "Unknown api_key"}}`))
		}
	}))
	defer server.Close()

	src := NewFlightSearchSource(SourceConfig{BaseURL: server.URL, APIKey: "key"})
	require.True(t, src.Enabled())
	ctx := context.Background()

	route, err := src.Lookup(ctx, "ACA123")
	require.NoError(t, err)
	assert.Equal(t, &Route{OriginICAO: "CYYZ", DestinationICAO: "KLAX", Source: SourceFlightSearch}, route)

	route, err = src.Lookup(ctx, "XYZ42")
	assert.NoError(t, err)
	assert.Nil(t, route)

	route, err = src.Lookup(ctx, "GONE1")
	assert.NoError(t, err)
	assert.Nil(t, route)

	_, err = src.Lookup(ctx, "ERR1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown api_key")
}

func TestFlightSearchSourceDisabledWithoutKey(t *testing.T) {
	src := NewFlightSearchSource(SourceConfig{})
	assert.False(t, src.Enabled())

	route, err := src.Lookup(context.Background(), "ACA123")
	assert.NoError(t, err)
	assert.Nil(t, route)
}
