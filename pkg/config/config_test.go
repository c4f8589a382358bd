package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Feed.RadiusNM != 50.0 {
		t.Errorf("Expected radius 50 NM, got %f", cfg.Feed.RadiusNM)
	}

	// Commercial sources ship without credentials
	if cfg.Routes.FlightNumber.APIKey != "" || cfg.Routes.FlightSearch.APIKey != "" {
		t.Error("Expected commercial sources disabled by default")
	}

	// Per-source timeouts stay within 8-20 seconds
	for name, src := range map[string]SourceConfig{
		"primary":       cfg.Routes.Primary,
		"flight_number": cfg.Routes.FlightNumber,
		"flight_search": cfg.Routes.FlightSearch,
	} {
		if src.Timeout() < 8*time.Second || src.Timeout() > 20*time.Second {
			t.Errorf("%s: expected timeout in [8s, 20s], got %v", name, src.Timeout())
		}
	}

	if cfg.Routes.StatsHalfLife() != 6*time.Hour {
		t.Errorf("Expected 6h half-life, got %v", cfg.Routes.StatsHalfLife())
	}
	if cfg.Logging.MaxSizeMB != 32 {
		t.Errorf("Expected log rotation at 32 MB, got %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Routes.EnrichConcurrency != 32 {
		t.Errorf("Expected enrich concurrency 32, got %d", cfg.Routes.EnrichConcurrency)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got: %v", err)
	}
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Error("Did not get default config for non-existent file")
	}
}

// TestLoadJSON tests loading a partial JSON file on top of defaults.
func TestLoadJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "server": {"port": "9090"},
  "observer": {"name": "YYZ", "latitude": 43.6777, "longitude": -79.6248},
  "routes": {"flight_search": {"api_key": "abc", "timeout_seconds": 12}}
}`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Observer.Latitude != 43.6777 {
		t.Errorf("Expected latitude 43.6777, got %f", cfg.Observer.Latitude)
	}
	if cfg.Routes.FlightSearch.APIKey != "abc" {
		t.Errorf("Expected flight search key abc, got %s", cfg.Routes.FlightSearch.APIKey)
	}
	if cfg.Routes.FlightSearch.TimeoutSeconds != 12 {
		t.Errorf("Expected timeout 12, got %d", cfg.Routes.FlightSearch.TimeoutSeconds)
	}
	// Untouched values keep their defaults
	if cfg.Routes.Primary.BaseURL != "https://api.adsbdb.com/v0" {
		t.Errorf("Expected default primary URL, got %s", cfg.Routes.Primary.BaseURL)
	}
}

// TestLoadTOML tests loading a TOML file.
func TestLoadTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[observer]
name = "LHR"
latitude = 51.47
longitude = -0.4543

[routes]
stats_half_life_minutes = 0

[routes.flight_number]
api_key = "rapid"

[logging]
level = "debug"
max_size_mb = 8
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Observer.Name != "LHR" || cfg.Observer.Longitude != -0.4543 {
		t.Errorf("Unexpected observer: %+v", cfg.Observer)
	}
	if cfg.Routes.FlightNumber.APIKey != "rapid" {
		t.Errorf("Expected flight number key, got %q", cfg.Routes.FlightNumber.APIKey)
	}
	if cfg.Routes.StatsHalfLife() != 0 {
		t.Errorf("Expected half-life disabled, got %v", cfg.Routes.StatsHalfLife())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.MaxSizeMB != 8 {
		t.Errorf("Expected log rotation at 8 MB, got %d", cfg.Logging.MaxSizeMB)
	}
}

// TestLoadInvalidFile tests error handling for malformed files.
func TestLoadInvalidFile(t *testing.T) {
	for _, name := range []string{"invalid.json", "invalid.toml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(configPath, []byte("{ invalid = ]"), 0644); err != nil {
				t.Fatalf("Failed to write invalid config: %v", err)
			}

			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Expected error for invalid file, got nil")
			}
			if !strings.Contains(err.Error(), "failed to parse") {
				t.Errorf("Expected parse error, got: %v", err)
			}
		})
	}
}

// TestSaveConfig tests saving and loading back in both formats.
func TestSaveConfig(t *testing.T) {
	for _, name := range []string{"saved.json", "saved.toml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "nested", name)

			cfg := DefaultConfig()
			cfg.Server.Port = "9999"
			cfg.Observer.Name = "Test Save"
			cfg.Observer.Latitude = 35.1234

			if err := cfg.Save(configPath); err != nil {
				t.Fatalf("Failed to save config: %v", err)
			}

			loaded, err := Load(configPath)
			if err != nil {
				t.Fatalf("Failed to load saved config: %v", err)
			}

			if loaded.Server.Port != "9999" {
				t.Errorf("Expected port 9999, got %s", loaded.Server.Port)
			}
			if loaded.Observer.Name != "Test Save" {
				t.Errorf("Expected observer name 'Test Save', got %s", loaded.Observer.Name)
			}
			if loaded.Observer.Latitude != 35.1234 {
				t.Errorf("Expected latitude preserved, got %f", loaded.Observer.Latitude)
			}
		})
	}
}

// TestEnvironmentOverrides tests environment variable overrides.
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SKYROUTE_PORT", "7777")
	t.Setenv("SKYROUTE_OBSERVER_LAT", "45.5")
	t.Setenv("SKYROUTE_OBSERVER_LON", "not-a-number")
	t.Setenv("SKYROUTE_FLIGHT_NUMBER_API_KEY", "env-fn-key")
	t.Setenv("SKYROUTE_FLIGHT_SEARCH_API_KEY", "env-fs-key")
	t.Setenv("SKYROUTE_LOG_LEVEL", "warn")

	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := DefaultConfig().Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "7777" {
		t.Errorf("Expected port 7777 from env, got %s", cfg.Server.Port)
	}
	if cfg.Observer.Latitude != 45.5 {
		t.Errorf("Expected latitude 45.5 from env, got %f", cfg.Observer.Latitude)
	}
	if cfg.Observer.Longitude != 0 {
		t.Errorf("Expected unparsable longitude to be ignored, got %f", cfg.Observer.Longitude)
	}
	if cfg.Routes.FlightNumber.APIKey != "env-fn-key" {
		t.Errorf("Expected flight number key from env, got %s", cfg.Routes.FlightNumber.APIKey)
	}
	if cfg.Routes.FlightSearch.APIKey != "env-fs-key" {
		t.Errorf("Expected flight search key from env, got %s", cfg.Routes.FlightSearch.APIKey)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected log level warn from env, got %s", cfg.Logging.Level)
	}
}

// TestValidate tests configuration validation.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"latitude out of range", func(c *Config) { c.Observer.Latitude = 91 }, "observer.latitude"},
		{"longitude out of range", func(c *Config) { c.Observer.Longitude = -181 }, "observer.longitude"},
		{"radius too large", func(c *Config) { c.Feed.RadiusNM = 500 }, "feed.radius_nm"},
		{"missing primary", func(c *Config) { c.Routes.Primary.BaseURL = "" }, "routes.primary.base_url"},
		{"no concurrency", func(c *Config) { c.Routes.EnrichConcurrency = 0 }, "enrich_concurrency"},
		{"negative half-life", func(c *Config) { c.Routes.StatsHalfLifeMinutes = -1 }, "stats_half_life_minutes"},
		{"zero timeout", func(c *Config) { c.Routes.FlightSearch.TimeoutSeconds = 0 }, "flight_search.timeout_seconds"},
		{"negative log size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

// TestShippedConfigs tests that the example configs load and validate.
func TestShippedConfigs(t *testing.T) {
	for _, name := range []string{"config.json", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(filepath.Join("..", "..", "configs", name))
			if err != nil {
				t.Fatalf("Failed to load %s: %v", name, err)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Expected %s to validate, got: %v", name, err)
			}
			if cfg.Observer.Latitude == 0 {
				t.Errorf("Expected an observer position in %s", name)
			}
		})
	}
}
