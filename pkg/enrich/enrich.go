// Package enrich decorates raw feed records with observer geometry and
// resolved flight routes.
package enrich

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unklstewy/skyroute/pkg/adsb"
	"github.com/unklstewy/skyroute/pkg/coordinates"
	"github.com/unklstewy/skyroute/pkg/logger"
	"github.com/unklstewy/skyroute/pkg/routes"
)

// DefaultConcurrency caps in-flight record enrichments.
const DefaultConcurrency = 32

// RouteResolver resolves a callsign to a route, or nil.
type RouteResolver interface {
	Resolve(ctx context.Context, callsign string) *routes.Route
}

// NameResolver renders an airport ICAO code for display, or nil.
type NameResolver interface {
	DisplayName(ctx context.Context, icao string) *string
}

// Aircraft is an enriched feed record. Every derived or route field is
// optional; nil means unknown, which is a normal outcome.
type Aircraft struct {
	Hex          string `json:"hex"`
	Callsign     string `json:"callsign"`
	Registration string `json:"registration,omitempty"`
	Model        string `json:"model,omitempty"`
	Airline      string `json:"airline,omitempty"`

	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Altitude     *float64  `json:"altitude"`
	GroundSpeed  *float64  `json:"ground_speed"`
	Heading      *float64  `json:"heading"`
	VerticalRate *float64  `json:"vertical_rate"`
	OnGround     bool      `json:"on_ground"`
	LastSeen     time.Time `json:"last_seen"`

	// Geometry relative to the observer
	Bearing    *float64 `json:"bearing"`
	Direction  *string  `json:"direction"`
	DistanceKm *float64 `json:"distance_km"`

	// Route
	Origin          *string `json:"origin"`
	Destination     *string `json:"destination"`
	OriginName      *string `json:"origin_name"`
	DestinationName *string `json:"destination_name"`
	RouteSource     *string `json:"route_source"`
}

// Config configures an Enricher.
type Config struct {
	// Observer is the position geometry is measured from.
	Observer coordinates.Geographic

	// Concurrency caps in-flight record enrichments (default: 32)
	Concurrency int

	Logger *logger.Logger
}

// Enricher attaches geometry and routes to batches of feed records.
type Enricher struct {
	routes      RouteResolver
	names       NameResolver
	observer    coordinates.Geographic
	concurrency int
	logger      *logger.Logger
}

// New creates an enricher. names may be nil, in which case display names
// are left empty.
func New(routeResolver RouteResolver, names NameResolver, cfg Config) *Enricher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Enricher{
		routes:      routeResolver,
		names:       names,
		observer:    cfg.Observer,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger.Named("enrich"),
	}
}

// Enrich returns one enriched record per input record, in input order.
// Records are enriched concurrently. A record whose route lookup fails or
// panics is returned without route fields; the rest of the batch is
// unaffected.
func (e *Enricher) Enrich(ctx context.Context, records []adsb.Aircraft) []Aircraft {
	out := make([]Aircraft, len(records))

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i := range records {
		out[i] = e.base(records[i])
		if out[i].Callsign == "" || e.routes == nil {
			continue
		}

		g.Go(func() error {
			info, err := e.lookupRoute(ctx, out[i].Callsign)
			if err != nil {
				e.logger.Warn("Route enrichment failed",
					logger.String("hex", out[i].Hex),
					logger.String("callsign", out[i].Callsign),
					logger.Error(err))
				return nil
			}
			info.apply(&out[i])
			return nil
		})
	}

	// Tasks never return an error; failures stay with their record.
	_ = g.Wait()

	return out
}

// base copies the feed fields and computes observer geometry.
func (e *Enricher) base(a adsb.Aircraft) Aircraft {
	out := Aircraft{
		Hex:          a.Hex,
		Callsign:     routes.NormalizeCallsign(a.Callsign),
		Registration: a.Registration,
		Model:        a.Model,
		Airline:      a.Airline,
		Altitude:     a.Altitude,
		GroundSpeed:  a.GroundSpeed,
		Heading:      a.Track,
		VerticalRate: a.VerticalRate,
		OnGround:     a.OnGround,
		LastSeen:     a.LastSeen,
	}

	if a.Position != nil {
		lat, lon := a.Position.Latitude, a.Position.Longitude
		out.Latitude, out.Longitude = &lat, &lon
	}

	obs := coordinates.Observe(&e.observer, a.Position)
	out.Bearing = obs.Bearing
	out.Direction = obs.Direction
	out.DistanceKm = obs.DistanceKm

	return out
}

// routeInfo holds the route fields for one record until all of them are known.
type routeInfo struct {
	route           *routes.Route
	originName      *string
	destinationName *string
}

func (r routeInfo) apply(a *Aircraft) {
	if r.route == nil {
		return
	}
	origin, destination, source := r.route.OriginICAO, r.route.DestinationICAO, r.route.Source
	a.Origin = &origin
	a.Destination = &destination
	a.RouteSource = &source
	a.OriginName = r.originName
	a.DestinationName = r.destinationName
}

// lookupRoute resolves the route and then both display names concurrently.
// Panics from either step are returned as errors.
func (e *Enricher) lookupRoute(ctx context.Context, callsign string) (info routeInfo, err error) {
	err = recoverError(func() error {
		info.route = e.routes.Resolve(ctx, callsign)
		return nil
	})
	if err != nil || info.route == nil || e.names == nil {
		return info, err
	}

	var g errgroup.Group
	g.Go(func() error {
		return recoverError(func() error {
			info.originName = e.names.DisplayName(ctx, info.route.OriginICAO)
			return nil
		})
	})
	g.Go(func() error {
		return recoverError(func() error {
			info.destinationName = e.names.DisplayName(ctx, info.route.DestinationICAO)
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return routeInfo{}, err
	}
	return info, nil
}

// recoverError runs fn and converts a panic into an error.
func recoverError(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}
