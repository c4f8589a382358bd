// Package app assembles the route enrichment pipeline from configuration.
// The commands under cmd/ share it so they resolve routes the same way.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/unklstewy/skyroute/pkg/adsb"
	"github.com/unklstewy/skyroute/pkg/config"
	"github.com/unklstewy/skyroute/pkg/coordinates"
	"github.com/unklstewy/skyroute/pkg/enrich"
	"github.com/unklstewy/skyroute/pkg/logger"
	"github.com/unklstewy/skyroute/pkg/refdata"
	"github.com/unklstewy/skyroute/pkg/routes"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Feed     adsb.DataSource
	RefData  *refdata.Store
	Resolver *routes.Resolver
	Enricher *enrich.Enricher

	retry adsb.RetryConfig
}

// Setup loads and validates the configuration at path and builds a logger
// from it that writes to stderr.
func Setup(path string) (*config.Config, *logger.Logger, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := NewLogger(cfg, "")
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// LoadConfig loads and validates the configuration at path.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the configured logger. A non-empty output is a file path
// that replaces stderr.
func NewLogger(cfg *config.Config, output string) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    output,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
	})
}

// New wires every component from cfg. Nothing touches the network until
// the first lookup or Preload.
func New(cfg *config.Config, log *logger.Logger) *App {
	feed := adsb.NewFeedClient(adsb.FeedConfig{
		BaseURL:     cfg.Feed.BaseURL,
		MinInterval: time.Duration(cfg.Feed.RateLimitSeconds * float64(time.Second)),
		Timeout:     time.Duration(cfg.Feed.TimeoutSeconds) * time.Second,
	})

	store := refdata.NewStore(refdata.Config{
		AirportsURL:  cfg.RefData.AirportsURL,
		CountriesURL: cfg.RefData.CountriesURL,
	}, refdata.NewLocationFetcher(time.Duration(cfg.RefData.TimeoutSeconds)*time.Second), log)

	resolver := routes.NewResolver(routes.ResolverConfig{
		Sources:  Sources(cfg.Routes),
		HalfLife: cfg.Routes.StatsHalfLife(),
		Logger:   log,
	})

	return NewWith(cfg, log, feed, store, resolver)
}

// NewWith assembles an App from already built parts. Tests use it to swap
// in fake upstreams.
func NewWith(cfg *config.Config, log *logger.Logger, feed adsb.DataSource, store *refdata.Store, resolver *routes.Resolver) *App {
	retry := adsb.DefaultRetryConfig()
	retry.MaxRetries = 2
	retry.InitialDelay = 500 * time.Millisecond
	retry.MaxDelay = 5 * time.Second
	retry.Logger = log.Named("adsb-feed")

	var names enrich.NameResolver
	if store != nil {
		names = store
	}

	return &App{
		Config:   cfg,
		Logger:   log,
		Feed:     feed,
		RefData:  store,
		Resolver: resolver,
		Enricher: enrich.New(resolver, names, enrich.Config{
			Observer:    Observer(cfg),
			Concurrency: cfg.Routes.EnrichConcurrency,
			Logger:      log,
		}),
		retry: retry,
	}
}

// Sources builds the three route sources in default order.
func Sources(cfg config.RoutesConfig) []routes.Source {
	return []routes.Source{
		routes.NewPrimarySource(sourceConfig(cfg.Primary)),
		routes.NewFlightNumberSource(sourceConfig(cfg.FlightNumber)),
		routes.NewFlightSearchSource(sourceConfig(cfg.FlightSearch)),
	}
}

func sourceConfig(c config.SourceConfig) routes.SourceConfig {
	return routes.SourceConfig{
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		Timeout:           c.Timeout(),
		RequestsPerMinute: c.RequestsPerMinute,
	}
}

// Observer returns the configured observer position.
func Observer(cfg *config.Config) coordinates.Geographic {
	return coordinates.Geographic{
		Latitude:  cfg.Observer.Latitude,
		Longitude: cfg.Observer.Longitude,
		Altitude:  cfg.Observer.Elevation,
	}
}

// Snapshot fetches the aircraft around a point, retrying transient feed
// failures with backoff, and enriches them.
func (a *App) Snapshot(ctx context.Context, lat, lon, radiusNM float64) ([]enrich.Aircraft, error) {
	aircraft, err := adsb.RetryWithBackoffResult(ctx, a.retry, func() ([]adsb.Aircraft, error) {
		return a.Feed.GetAircraft(ctx, lat, lon, radiusNM)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch aircraft: %w", err)
	}
	return a.Enricher.Enrich(ctx, aircraft), nil
}

// ObserverSnapshot is Snapshot around the configured observer and radius.
func (a *App) ObserverSnapshot(ctx context.Context) ([]enrich.Aircraft, error) {
	return a.Snapshot(ctx, a.Config.Observer.Latitude, a.Config.Observer.Longitude, a.Config.Feed.RadiusNM)
}

// Close releases the feed client and flushes the logger.
func (a *App) Close() error {
	err := a.Feed.Close()
	_ = a.Logger.Sync()
	return err
}
