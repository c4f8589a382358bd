// Skyroute Server
// Serves enriched aircraft and route lookups over a JSON API.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unklstewy/skyroute/internal/app"
	"github.com/unklstewy/skyroute/pkg/logger"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file (.json or .toml)")
	preload    = flag.Bool("preload", true, "Download reference tables at startup")
)

func main() {
	flag.Parse()

	cfg, log, err := app.Setup(*configPath)
	if err != nil {
		// No logger yet; the config decides its level and format.
		_, _ = os.Stderr.WriteString("skyroute-server: " + err.Error() + "\n")
		os.Exit(1)
	}

	a := app.New(cfg, log)
	defer a.Close()

	log.Info("Starting skyroute server",
		logger.String("observer", cfg.Observer.Name),
		logger.Float64("latitude", cfg.Observer.Latitude),
		logger.Float64("longitude", cfg.Observer.Longitude),
		logger.Any("sources", a.Resolver.Sources()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *preload {
		go a.RefData.Preload(ctx)
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      NewServer(a),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds+15) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", logger.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
		return
	}

	log.Info("Server stopped")
}
