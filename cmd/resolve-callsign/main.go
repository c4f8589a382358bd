// resolve-callsign resolves flight callsigns to routes and shows which
// source answered, then prints the per-airline source order it learned.
//
// Usage:
//
//	resolve-callsign [-config configs/config.json] [-json] ACA123 BAW117 ...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/unklstewy/skyroute/internal/app"
	"github.com/unklstewy/skyroute/pkg/routes"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file (.json or .toml)")
	asJSON     = flag.Bool("json", false, "Print results as JSON")
)

// result is one resolved callsign.
type result struct {
	Callsign        string  `json:"callsign"`
	Airline         string  `json:"airline"`
	Origin          *string `json:"origin"`
	Destination     *string `json:"destination"`
	OriginName      *string `json:"origin_name"`
	DestinationName *string `json:"destination_name"`
	Source          *string `json:"source"`
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: resolve-callsign [-config path] [-json] CALLSIGN...")
		os.Exit(2)
	}

	cfg, log, err := app.Setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	a := app.New(cfg, log)
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, a, flag.Args(), os.Stdout, *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run resolves callsigns in order so that later ones benefit from the
// source order learned from earlier ones.
func run(ctx context.Context, a *app.App, callsigns []string, w io.Writer, jsonOut bool) error {
	results := make([]result, 0, len(callsigns))
	for _, cs := range callsigns {
		results = append(results, resolve(ctx, a, cs))
	}

	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"results":  results,
			"airlines": a.Resolver.Stats(),
		})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLSIGN\tSOURCE\tORIGIN\tDESTINATION")
	for _, r := range results {
		if r.Origin == nil {
			fmt.Fprintf(tw, "%s\t-\tno route\t\n", r.Callsign)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Callsign, *r.Source,
			endpoint(*r.Origin, r.OriginName), endpoint(*r.Destination, r.DestinationName))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	airlines := make([]string, 0)
	seen := make(map[string]bool)
	for _, r := range results {
		if !seen[r.Airline] {
			seen[r.Airline] = true
			airlines = append(airlines, r.Airline)
		}
	}
	sort.Strings(airlines)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Source order by airline:")
	for _, airline := range airlines {
		fmt.Fprintf(w, "  %-9s %s\n", airline, strings.Join(a.Resolver.Order(airline), " > "))
	}
	return nil
}

func resolve(ctx context.Context, a *app.App, callsign string) result {
	callsign = routes.NormalizeCallsign(callsign)
	r := result{Callsign: callsign, Airline: routes.AirlineKey(callsign)}

	route := a.Resolver.Resolve(ctx, callsign)
	if route == nil {
		return r
	}
	r.Origin, r.Destination, r.Source = &route.OriginICAO, &route.DestinationICAO, &route.Source
	if a.RefData != nil {
		r.OriginName = a.RefData.DisplayName(ctx, route.OriginICAO)
		r.DestinationName = a.RefData.DisplayName(ctx, route.DestinationICAO)
	}
	return r
}

func endpoint(code string, name *string) string {
	if name == nil {
		return code
	}
	return fmt.Sprintf("%s (%s)", code, *name)
}
