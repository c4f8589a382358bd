// Skyroute TUI
// Live table of enriched aircraft around the configured observer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/skyroute/internal/app"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file (.json or .toml)")
	logFile    = flag.String("log-file", "skyroute-tui.log", "File to write logs to (the terminal is busy)")
)

func main() {
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	a := app.New(cfg, log)
	defer a.Close()

	go a.RefData.Preload(context.Background())

	interval := time.Duration(cfg.Feed.UpdateIntervalSeconds) * time.Second
	if interval < 2*time.Second {
		interval = 2 * time.Second
	}

	p := tea.NewProgram(newModel(a.ObserverSnapshot, interval, cfg.Observer.Name), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
