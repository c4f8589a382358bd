package routes

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unklstewy/skyroute/pkg/adsb"
	"github.com/unklstewy/skyroute/pkg/logger"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Sources in default try order. Disabled sources are kept but skipped.
	Sources []Source

	// HalfLife is how long it takes a recorded success to lose half its
	// weight when ordering sources. Zero keeps plain success counts.
	HalfLife time.Duration

	Logger *logger.Logger

	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

// Resolver maps callsigns to routes through an adaptive chain of sources.
//
// Every outcome, including "no route", is cached for the life of the
// resolver. Per airline, sources that answered recently are tried first.
// Concurrent lookups of the same uncached callsign share one chain run.
type Resolver struct {
	sources  []Source
	byName   map[string]Source
	halfLife time.Duration
	logger   *logger.Logger
	now      func() time.Time

	inflight singleflight.Group

	mu    sync.Mutex
	cache map[string]*Route // nil entry: resolved, no route
	stats map[string]map[string]*sourceScore
}

// sourceScore tracks one (airline, source) pair.
type sourceScore struct {
	weight      float64
	successes   int
	lastSuccess time.Time
}

// SourceStats is a point-in-time view of one (airline, source) pair.
type SourceStats struct {
	// Score is the decayed success weight used for ordering.
	Score       float64   `json:"score"`
	Successes   int       `json:"successes"`
	LastSuccess time.Time `json:"last_success"`
}

// NewResolver creates a resolver with an empty cache.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	byName := make(map[string]Source, len(cfg.Sources))
	for _, src := range cfg.Sources {
		byName[src.Name()] = src
	}

	return &Resolver{
		sources:  cfg.Sources,
		byName:   byName,
		halfLife: cfg.HalfLife,
		logger:   cfg.Logger.Named("routes"),
		now:      cfg.Now,
		cache:    make(map[string]*Route),
		stats:    make(map[string]map[string]*sourceScore),
	}
}

// Resolve returns the route flown under a callsign, or nil if none of the
// sources knows it. Source failures are logged and never returned. A caller
// whose context ends gets nil; a lookup it joined still completes and is
// cached for everyone else.
func (r *Resolver) Resolve(ctx context.Context, callsign string) *Route {
	key := NormalizeCallsign(callsign)
	if key == "" {
		return nil
	}

	if route, ok := r.cached(key); ok {
		return route
	}
	if ctx.Err() != nil {
		return nil
	}

	// The shared lookup is detached from any one caller; each caller only
	// stops waiting when its own context ends. Source timeouts bound it.
	ch := r.inflight.DoChan(key, func() (any, error) {
		if route, ok := r.cached(key); ok {
			return route, nil
		}
		return r.resolve(context.WithoutCancel(ctx), key), nil
	})

	select {
	case res := <-ch:
		return copyRoute(res.Val.(*Route))
	case <-ctx.Done():
		return nil
	}
}

func (r *Resolver) cached(key string) (*Route, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	route, ok := r.cache[key]
	return copyRoute(route), ok
}

// resolve runs the source chain for an uncached callsign.
func (r *Resolver) resolve(ctx context.Context, callsign string) *Route {
	airline := AirlineKey(callsign)
	log := r.logger.With(logger.String("callsign", callsign), logger.String("airline", airline))

	for _, name := range r.Order(airline) {
		src := r.byName[name]
		if !src.Enabled() {
			continue
		}

		route, err := src.Lookup(ctx, callsign)
		if err != nil {
			if rle, ok := adsb.IsRateLimitError(err); ok {
				log.Warn("Route source rate limited",
					logger.String("source", name),
					logger.Duration("retry_after", rle.RetryAfter))
			} else {
				log.Warn("Route source failed", logger.String("source", name), logger.Error(err))
			}
			continue
		}
		if route == nil || route.OriginICAO == "" || route.DestinationICAO == "" {
			continue
		}

		route.Source = name
		r.mu.Lock()
		r.recordSuccessLocked(airline, name)
		r.cache[callsign] = route
		r.mu.Unlock()

		log.Debug("Route resolved",
			logger.String("source", name),
			logger.String("origin", route.OriginICAO),
			logger.String("destination", route.DestinationICAO))
		return copyRoute(route)
	}

	r.mu.Lock()
	r.cache[callsign] = nil
	r.mu.Unlock()

	log.Debug("No route found")
	return nil
}

// Order returns the source names in the order they are tried for an
// airline key: highest score first, ties in default order.
func (r *Resolver) Order(airline string) []string {
	names := make([]string, len(r.sources))
	for i, src := range r.sources {
		names[i] = src.Name()
	}

	r.mu.Lock()
	now := r.now()
	scores := make(map[string]float64, len(names))
	for name, s := range r.stats[airline] {
		scores[name] = r.decayed(s, now)
	}
	r.mu.Unlock()

	sort.SliceStable(names, func(i, j int) bool {
		return scores[names[i]] > scores[names[j]]
	})
	return names
}

func (r *Resolver) recordSuccessLocked(airline, source string) {
	bySource, ok := r.stats[airline]
	if !ok {
		bySource = make(map[string]*sourceScore)
		r.stats[airline] = bySource
	}
	s, ok := bySource[source]
	if !ok {
		s = &sourceScore{}
		bySource[source] = s
	}

	now := r.now()
	s.weight = r.decayed(s, now) + 1
	s.successes++
	s.lastSuccess = now
}

// decayed returns a score's weight as of now.
func (r *Resolver) decayed(s *sourceScore, now time.Time) float64 {
	if r.halfLife <= 0 || s.lastSuccess.IsZero() {
		return s.weight
	}
	elapsed := now.Sub(s.lastSuccess)
	if elapsed <= 0 {
		return s.weight
	}
	return s.weight * math.Exp2(-float64(elapsed)/float64(r.halfLife))
}

// Stats returns per-airline, per-source success statistics.
func (r *Resolver) Stats() map[string]map[string]SourceStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make(map[string]map[string]SourceStats, len(r.stats))
	for airline, bySource := range r.stats {
		m := make(map[string]SourceStats, len(bySource))
		for name, s := range bySource {
			m[name] = SourceStats{
				Score:       r.decayed(s, now),
				Successes:   s.successes,
				LastSuccess: s.lastSuccess,
			}
		}
		out[airline] = m
	}
	return out
}

// CacheSize returns how many callsigns are cached and how many of those
// resolved to no route.
func (r *Resolver) CacheSize() (total, misses int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, route := range r.cache {
		if route == nil {
			misses++
		}
	}
	return len(r.cache), misses
}

// SourceInfo describes a configured source.
type SourceInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Sources lists the configured sources in default order.
func (r *Resolver) Sources() []SourceInfo {
	out := make([]SourceInfo, len(r.sources))
	for i, src := range r.sources {
		out[i] = SourceInfo{Name: src.Name(), Enabled: src.Enabled()}
	}
	return out
}

func copyRoute(route *Route) *Route {
	if route == nil {
		return nil
	}
	c := *route
	return &c
}
