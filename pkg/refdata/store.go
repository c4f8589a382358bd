// Package refdata holds the airport and country reference tables used to
// turn ICAO airport codes into "City, CC" display names.
//
// Each table is downloaded at most once per process. Concurrent first
// callers share a single in-flight load. A failed load leaves an empty
// table for the rest of the process lifetime; lookups then return nothing
// instead of an error.
package refdata

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/unklstewy/skyroute/pkg/logger"
)

// Config locates the two reference tables.
type Config struct {
	AirportsURL  string
	CountriesURL string
}

// Store lazily loads and serves the reference tables.
type Store struct {
	fetcher   Fetcher
	logger    *logger.Logger
	airports  *dataset[map[string]Airport]
	countries *dataset[map[string]string]
}

// NewStore creates a store. Nothing is fetched until the first lookup or Preload.
func NewStore(cfg Config, fetcher Fetcher, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("refdata")

	return &Store{
		fetcher: fetcher,
		logger:  log,
		airports: &dataset[map[string]Airport]{
			name:     "airports",
			location: cfg.AirportsURL,
			parse: func(r io.Reader) (map[string]Airport, error) {
				airports, skipped, err := ParseAirports(r)
				if err == nil && skipped > 0 {
					log.Debug("Skipped airport rows", logger.Int("skipped", skipped))
				}
				return airports, err
			},
			empty: func() map[string]Airport { return map[string]Airport{} },
		},
		countries: &dataset[map[string]string]{
			name:     "countries",
			location: cfg.CountriesURL,
			parse:    ParseCountries,
			empty:    func() map[string]string { return map[string]string{} },
		},
	}
}

// Preload loads both tables concurrently. It never fails; errors are
// logged and leave the affected table empty.
func (s *Store) Preload(ctx context.Context) {
	var eg errgroup.Group
	eg.Go(func() error {
		s.airports.get(ctx, s.fetcher, s.logger)
		return nil
	})
	eg.Go(func() error {
		s.countries.get(ctx, s.fetcher, s.logger)
		return nil
	})
	_ = eg.Wait()
}

// Airport returns the airport record for an ICAO code.
func (s *Store) Airport(ctx context.Context, icao string) (Airport, bool) {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	if icao == "" {
		return Airport{}, false
	}
	a, ok := s.airports.get(ctx, s.fetcher, s.logger)[icao]
	return a, ok
}

// CountryCode returns the ISO-2 code for a country display name.
func (s *Store) CountryCode(ctx context.Context, country string) (string, bool) {
	if country == "" {
		return "", false
	}
	code, ok := s.countries.get(ctx, s.fetcher, s.logger)[country]
	return code, ok
}

// DisplayName renders an airport as, in order of preference:
// "City, CC", "City, Country", "City", "Country". It returns nil when the
// airport is unknown or has neither a city nor a country.
func (s *Store) DisplayName(ctx context.Context, icao string) *string {
	a, ok := s.Airport(ctx, icao)
	if !ok {
		return nil
	}

	var name string
	switch {
	case a.City != "" && a.Country != "":
		if code, ok := s.CountryCode(ctx, a.Country); ok {
			name = a.City + ", " + code
		} else {
			name = a.City + ", " + a.Country
		}
	case a.City != "":
		name = a.City
	case a.Country != "":
		name = a.Country
	default:
		return nil
	}
	return &name
}

// Counts reports how many entries each table holds, loading them if needed.
func (s *Store) Counts(ctx context.Context) (airports, countries int) {
	return len(s.airports.get(ctx, s.fetcher, s.logger)),
		len(s.countries.get(ctx, s.fetcher, s.logger))
}

// dataset is one lazily loaded, immutable table.
type dataset[T any] struct {
	name     string
	location string
	parse    func(io.Reader) (T, error)
	empty    func() T

	group singleflight.Group

	mu     sync.RWMutex
	loaded bool
	value  T
}

func (d *dataset[T]) get(ctx context.Context, fetcher Fetcher, log *logger.Logger) T {
	if v, ok := d.snapshot(); ok {
		return v
	}

	// The load outlives any one caller: a cancelled first request must not
	// leave the table empty for everyone else.
	loadCtx := context.WithoutCancel(ctx)

	v, _, _ := d.group.Do(d.name, func() (any, error) {
		if v, ok := d.snapshot(); ok {
			return v, nil
		}

		start := time.Now()
		value, err := d.load(loadCtx, fetcher)
		if err != nil {
			log.Warn("Reference table unavailable, continuing without it",
				logger.String("table", d.name),
				logger.String("location", d.location),
				logger.Error(err))
			value = d.empty()
		} else {
			log.Info("Reference table loaded",
				logger.String("table", d.name),
				logger.Duration("took", time.Since(start)))
		}

		d.mu.Lock()
		d.value = value
		d.loaded = true
		d.mu.Unlock()

		return value, nil
	})

	return v.(T)
}

func (d *dataset[T]) snapshot() (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value, d.loaded
}

func (d *dataset[T]) load(ctx context.Context, fetcher Fetcher) (value T, err error) {
	body, err := fetcher.Fetch(ctx, d.location)
	if err != nil {
		return value, fmt.Errorf("fetch %s: %w", d.name, err)
	}
	defer body.Close()

	value, err = d.parse(body)
	if err != nil {
		return value, fmt.Errorf("parse %s: %w", d.name, err)
	}
	return value, nil
}
