package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/unklstewy/skyroute/internal/app"
	"github.com/unklstewy/skyroute/pkg/adsb"
	"github.com/unklstewy/skyroute/pkg/enrich"
	"github.com/unklstewy/skyroute/pkg/logger"
	"github.com/unklstewy/skyroute/pkg/routes"
)

// snapshotCacheSize bounds how many distinct (lat, lon, radius) views are kept.
const snapshotCacheSize = 64

// Server holds the HTTP router and its dependencies.
type Server struct {
	router *chi.Mux
	app    *app.App
	logger *logger.Logger

	// snapshots memoizes enriched feed views for one update interval so
	// polling clients share upstream calls.
	snapshots *expirable.LRU[string, snapshot]
	fetches   singleflight.Group
}

type snapshot struct {
	Aircraft  []enrich.Aircraft
	FetchedAt time.Time
}

// NewServer creates the server and registers its routes.
func NewServer(a *app.App) *Server {
	ttl := time.Duration(a.Config.Feed.UpdateIntervalSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Second
	}

	s := &Server{
		router:    chi.NewRouter(),
		app:       a,
		logger:    a.Logger.Named("api"),
		snapshots: expirable.NewLRU[string, snapshot](snapshotCacheSize, nil, ttl),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	if timeout := s.app.Config.Server.RequestTimeoutSeconds; timeout > 0 {
		r.Use(middleware.Timeout(time.Duration(timeout) * time.Second))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.app.Config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/aircraft", s.handleGetAircraft)
		r.Get("/routes/{callsign}", s.handleGetRoute)
		r.Get("/route-stats", s.handleGetRouteStats)
	})
}

// requestLogger logs one line per request through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("Request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("took", time.Since(start)),
			logger.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, misses := s.app.Resolver.CacheSize()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"cached_routes": total,
		"cached_misses": misses,
		"sources":       s.app.Resolver.Sources(),
	})
}

// handleGetAircraft returns the enriched aircraft around a point. lat, lon
// and radius (NM) default to the configured observer and feed radius.
func (s *Server) handleGetAircraft(w http.ResponseWriter, r *http.Request) {
	cfg := s.app.Config
	q := r.URL.Query()

	lat, err := floatParam(q.Get("lat"), cfg.Observer.Latitude, -90, 90)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("lat: %v", err))
		return
	}
	lon, err := floatParam(q.Get("lon"), cfg.Observer.Longitude, -180, 180)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("lon: %v", err))
		return
	}
	radius, err := floatParam(q.Get("radius"), cfg.Feed.RadiusNM, 0, adsb.MaxRadiusNM)
	if err != nil || radius == 0 {
		respondError(w, http.StatusBadRequest, "radius must be in (0, 250]")
		return
	}

	snap, err := s.snapshot(r.Context(), lat, lon, radius)
	if err != nil {
		s.logger.Error("Failed to fetch aircraft", logger.Error(err))
		status := http.StatusBadGateway
		if _, ok := adsb.IsRateLimitError(err); ok {
			status = http.StatusServiceUnavailable
		}
		respondError(w, status, "aircraft feed unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"observer":   map[string]float64{"latitude": lat, "longitude": lon},
		"radius_nm":  radius,
		"fetched_at": snap.FetchedAt,
		"count":      len(snap.Aircraft),
		"aircraft":   snap.Aircraft,
	})
}

// snapshot returns a cached or freshly enriched feed view. Concurrent
// misses for the same view share one fetch. The fetch is detached from the
// request that started it and bounded by the server request timeout.
func (s *Server) snapshot(ctx context.Context, lat, lon, radius float64) (snapshot, error) {
	key := fmt.Sprintf("%.3f,%.3f,%.0f", lat, lon, radius)
	if snap, ok := s.snapshots.Get(key); ok {
		return snap, nil
	}

	ch := s.fetches.DoChan(key, func() (any, error) {
		fetchCtx, cancel := s.fetchContext(ctx)
		defer cancel()

		aircraft, err := s.app.Snapshot(fetchCtx, lat, lon, radius)
		if err != nil {
			return snapshot{}, err
		}
		snap := snapshot{Aircraft: aircraft, FetchedAt: time.Now().UTC()}
		s.snapshots.Add(key, snap)
		return snap, nil
	})

	select {
	case res := <-ch:
		return res.Val.(snapshot), res.Err
	case <-ctx.Done():
		return snapshot{}, ctx.Err()
	}
}

func (s *Server) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if timeout := s.app.Config.Server.RequestTimeoutSeconds; timeout > 0 {
		return context.WithTimeout(detached, time.Duration(timeout)*time.Second)
	}
	return context.WithCancel(detached)
}

// routeResponse is the body of /api/routes/{callsign}.
type routeResponse struct {
	Callsign        string  `json:"callsign"`
	Airline         string  `json:"airline"`
	Found           bool    `json:"found"`
	Origin          *string `json:"origin"`
	Destination     *string `json:"destination"`
	OriginName      *string `json:"origin_name"`
	DestinationName *string `json:"destination_name"`
	Source          *string `json:"source"`
}

func (s *Server) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	callsign := routes.NormalizeCallsign(chi.URLParam(r, "callsign"))
	if callsign == "" {
		respondError(w, http.StatusBadRequest, "callsign is required")
		return
	}

	resp := routeResponse{Callsign: callsign, Airline: routes.AirlineKey(callsign)}
	route := s.app.Resolver.Resolve(r.Context(), callsign)
	if route != nil {
		resp.Found = true
		resp.Origin = &route.OriginICAO
		resp.Destination = &route.DestinationICAO
		resp.Source = &route.Source
		if s.app.RefData != nil {
			resp.OriginName = s.app.RefData.DisplayName(r.Context(), route.OriginICAO)
			resp.DestinationName = s.app.RefData.DisplayName(r.Context(), route.DestinationICAO)
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRouteStats(w http.ResponseWriter, r *http.Request) {
	stats := s.app.Resolver.Stats()

	orders := make(map[string][]string, len(stats))
	for airline := range stats {
		orders[airline] = s.app.Resolver.Order(airline)
	}

	total, misses := s.app.Resolver.CacheSize()
	respondJSON(w, http.StatusOK, map[string]any{
		"sources":       s.app.Resolver.Sources(),
		"cached_routes": total,
		"cached_misses": misses,
		"airlines":      stats,
		"orders":        orders,
	})
}

var errOutOfRange = errors.New("out of range")

// floatParam parses an optional query value within [lo, hi].
func floatParam(raw string, def, lo, hi float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, errOutOfRange
	}
	return v, nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
