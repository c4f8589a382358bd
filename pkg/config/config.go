package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the complete application configuration.
// Files ending in .toml are decoded as TOML, anything else as JSON.
type Config struct {
	Server   ServerConfig   `json:"server" toml:"server"`
	Observer ObserverConfig `json:"observer" toml:"observer"`
	Feed     FeedConfig     `json:"feed" toml:"feed"`
	Routes   RoutesConfig   `json:"routes" toml:"routes"`
	RefData  RefDataConfig  `json:"refdata" toml:"refdata"`
	Logging  LoggingConfig  `json:"logging" toml:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port" toml:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host" toml:"host"`

	// CORSAllowedOrigins lists origins allowed to call the API (["*"] for any)
	CORSAllowedOrigins []string `json:"cors_allowed_origins" toml:"cors_allowed_origins"`

	// RequestTimeoutSeconds bounds a single API request, including the
	// feed fetch and enrichment it triggers
	RequestTimeoutSeconds int `json:"request_timeout_seconds" toml:"request_timeout_seconds"`
}

// ObserverConfig is the position bearings and distances are measured from.
type ObserverConfig struct {
	// Name is a friendly identifier for this observer location
	Name string `json:"name" toml:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude" toml:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude" toml:"longitude"`

	// Elevation in meters above sea level
	Elevation float64 `json:"elevation" toml:"elevation"`
}

// FeedConfig contains the live traffic feed settings.
type FeedConfig struct {
	// BaseURL is the airplanes.live style API base URL
	BaseURL string `json:"base_url" toml:"base_url"`

	// RadiusNM is the default search radius in nautical miles (max 250)
	RadiusNM float64 `json:"radius_nm" toml:"radius_nm"`

	// UpdateIntervalSeconds is how long a fetched snapshot is reused
	UpdateIntervalSeconds int `json:"update_interval_seconds" toml:"update_interval_seconds"`

	// RateLimitSeconds is the minimum time between feed calls in seconds
	RateLimitSeconds float64 `json:"rate_limit_seconds" toml:"rate_limit_seconds"`

	// TimeoutSeconds bounds a single feed request
	TimeoutSeconds int `json:"timeout_seconds" toml:"timeout_seconds"`
}

// SourceConfig configures one upstream route source.
type SourceConfig struct {
	// BaseURL is the API base URL
	BaseURL string `json:"base_url" toml:"base_url"`

	// APIKey authenticates commercial sources. An empty key disables the
	// source; it is never an error.
	APIKey string `json:"api_key,omitempty" toml:"api_key"`

	// TimeoutSeconds bounds a single upstream call
	TimeoutSeconds int `json:"timeout_seconds" toml:"timeout_seconds"`

	// RequestsPerMinute caps the call rate (0 = unlimited)
	RequestsPerMinute float64 `json:"requests_per_minute" toml:"requests_per_minute"`
}

// Timeout returns the configured timeout as a duration.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RoutesConfig contains route resolution settings.
type RoutesConfig struct {
	// Primary is the keyless callsign route API (adsbdb)
	Primary SourceConfig `json:"primary" toml:"primary"`

	// FlightNumber is the commercial flight-number API
	FlightNumber SourceConfig `json:"flight_number" toml:"flight_number"`

	// FlightSearch is the commercial flight-search API
	FlightSearch SourceConfig `json:"flight_search" toml:"flight_search"`

	// StatsHalfLifeMinutes is the half-life of per-airline source success
	// scores. 0 keeps plain success counts that never decay.
	StatsHalfLifeMinutes int `json:"stats_half_life_minutes" toml:"stats_half_life_minutes"`

	// EnrichConcurrency caps concurrent per-aircraft enrichment tasks
	EnrichConcurrency int `json:"enrich_concurrency" toml:"enrich_concurrency"`
}

// StatsHalfLife returns the score half-life as a duration.
func (r RoutesConfig) StatsHalfLife() time.Duration {
	return time.Duration(r.StatsHalfLifeMinutes) * time.Minute
}

// RefDataConfig locates the airport and country reference tables.
// Values starting with http:// or https:// are downloaded; anything else
// is read from disk.
type RefDataConfig struct {
	// AirportsURL is an OpenFlights airports.dat style table
	AirportsURL string `json:"airports_url" toml:"airports_url"`

	// CountriesURL is a CSV with "name" and "code" header columns
	CountriesURL string `json:"countries_url" toml:"countries_url"`

	// TimeoutSeconds bounds each download
	TimeoutSeconds int `json:"timeout_seconds" toml:"timeout_seconds"`
}

// LoggingConfig contains application logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" toml:"level"`   // "debug", "info", "warn" or "error"
	Format string `json:"format" toml:"format"` // "json" or "console"

	// MaxSizeMB is the size at which a log file is rotated (default: 32).
	// Only used when logging to a file.
	MaxSizeMB int `json:"max_size_mb" toml:"max_size_mb"`
}

// Load reads configuration from a JSON or TOML file.
// If the file doesn't exist, returns a default configuration.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON or TOML file based on its extension.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = []byte(sb.String())
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
// Both commercial route sources start disabled (no API key).
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                  "8080",
			Host:                  "0.0.0.0",
			CORSAllowedOrigins:    []string{"*"},
			RequestTimeoutSeconds: 60,
		},
		Observer: ObserverConfig{
			Name:      "Primary Observer",
			Latitude:  0.0,
			Longitude: 0.0,
			Elevation: 0.0,
		},
		Feed: FeedConfig{
			BaseURL:               "https://api.airplanes.live/v2",
			RadiusNM:              50.0,
			UpdateIntervalSeconds: 5,
			RateLimitSeconds:      1.0,
			TimeoutSeconds:        10,
		},
		Routes: RoutesConfig{
			Primary: SourceConfig{
				BaseURL:           "https://api.adsbdb.com/v0",
				TimeoutSeconds:    8,
				RequestsPerMinute: 120,
			},
			FlightNumber: SourceConfig{
				BaseURL:           "https://aerodatabox.p.rapidapi.com",
				TimeoutSeconds:    15,
				RequestsPerMinute: 30,
			},
			FlightSearch: SourceConfig{
				BaseURL:           "https://airlabs.co/api/v9",
				TimeoutSeconds:    20,
				RequestsPerMinute: 30,
			},
			StatsHalfLifeMinutes: 360,
			EnrichConcurrency:    32,
		},
		RefData: RefDataConfig{
			AirportsURL:    "https://raw.githubusercontent.com/jpatokal/openflights/master/data/airports.dat",
			CountriesURL:   "https://datahub.io/core/country-list/r/data.csv",
			TimeoutSeconds: 20,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "console",
			MaxSizeMB: 32,
		},
	}
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Observer.Latitude < -90 || c.Observer.Latitude > 90 {
		errs = append(errs, fmt.Errorf("observer.latitude %.4f out of range", c.Observer.Latitude))
	}
	if c.Observer.Longitude < -180 || c.Observer.Longitude > 180 {
		errs = append(errs, fmt.Errorf("observer.longitude %.4f out of range", c.Observer.Longitude))
	}
	if c.Feed.RadiusNM <= 0 || c.Feed.RadiusNM > 250 {
		errs = append(errs, fmt.Errorf("feed.radius_nm must be in (0, 250], got %.1f", c.Feed.RadiusNM))
	}
	if c.Routes.Primary.BaseURL == "" {
		errs = append(errs, errors.New("routes.primary.base_url is required"))
	}
	if c.Routes.EnrichConcurrency < 1 {
		errs = append(errs, errors.New("routes.enrich_concurrency must be at least 1"))
	}
	if c.Routes.StatsHalfLifeMinutes < 0 {
		errs = append(errs, errors.New("routes.stats_half_life_minutes must not be negative"))
	}
	if c.Logging.MaxSizeMB < 0 {
		errs = append(errs, errors.New("logging.max_size_mb must not be negative"))
	}
	for name, src := range map[string]SourceConfig{
		"primary":       c.Routes.Primary,
		"flight_number": c.Routes.FlightNumber,
		"flight_search": c.Routes.FlightSearch,
	} {
		if src.TimeoutSeconds <= 0 {
			errs = append(errs, fmt.Errorf("routes.%s.timeout_seconds must be positive", name))
		}
		if src.RequestsPerMinute < 0 {
			errs = append(errs, fmt.Errorf("routes.%s.requests_per_minute must not be negative", name))
		}
	}

	return errors.Join(errs...)
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows API keys to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("SKYROUTE_PORT"); port != "" {
		c.Server.Port = port
	}
	if v, ok := envFloat("SKYROUTE_OBSERVER_LAT"); ok {
		c.Observer.Latitude = v
	}
	if v, ok := envFloat("SKYROUTE_OBSERVER_LON"); ok {
		c.Observer.Longitude = v
	}
	if key := os.Getenv("SKYROUTE_FLIGHT_NUMBER_API_KEY"); key != "" {
		c.Routes.FlightNumber.APIKey = key
	}
	if key := os.Getenv("SKYROUTE_FLIGHT_SEARCH_API_KEY"); key != "" {
		c.Routes.FlightSearch.APIKey = key
	}
	if level := os.Getenv("SKYROUTE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func envFloat(name string) (float64, bool) {
	s := os.Getenv(name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
