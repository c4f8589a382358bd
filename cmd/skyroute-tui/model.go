package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/skyroute/pkg/coordinates"
	"github.com/unklstewy/skyroute/pkg/enrich"
)

// sortMode orders the aircraft table.
type sortMode int

const (
	sortByDistance sortMode = iota
	sortByCallsign
	sortByAltitude
)

func (s sortMode) String() string {
	switch s {
	case sortByCallsign:
		return "callsign"
	case sortByAltitude:
		return "altitude"
	default:
		return "distance"
	}
}

// snapshotFunc fetches one enriched view around the observer.
type snapshotFunc func(ctx context.Context) ([]enrich.Aircraft, error)

type model struct {
	fetch    snapshotFunc
	interval time.Duration
	observer string

	aircraft   []enrich.Aircraft
	selected   int
	sortBy     sortMode
	loading    bool
	lastUpdate time.Time
	err        error
	height     int
}

type tickMsg time.Time

type snapshotMsg struct {
	aircraft []enrich.Aircraft
	err      error
	at       time.Time
}

func newModel(fetch snapshotFunc, interval time.Duration, observer string) model {
	return model{
		fetch:    fetch,
		interval: interval,
		observer: observer,
		loading:  true,
		height:   24,
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) load() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		aircraft, err := fetch(ctx)
		return snapshotMsg{aircraft: aircraft, err: err, at: time.Now()}
	}
}

func (m model) Init() tea.Cmd {
	return m.load()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.aircraft)-1 {
				m.selected++
			}
		case "s":
			m.sortBy = (m.sortBy + 1) % 3
			sortAircraft(m.aircraft, m.sortBy)
		case "r":
			if !m.loading {
				m.loading = true
				return m, m.load()
			}
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height

	case tickMsg:
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.load()

	case snapshotMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.aircraft = msg.aircraft
			m.lastUpdate = msg.at
			sortAircraft(m.aircraft, m.sortBy)
			if m.selected >= len(m.aircraft) {
				m.selected = max(len(m.aircraft)-1, 0)
			}
		}
		return m, tick(m.interval)
	}

	return m, nil
}

// sortAircraft orders in place. Unknown values sort last.
func sortAircraft(aircraft []enrich.Aircraft, by sortMode) {
	sort.SliceStable(aircraft, func(i, j int) bool {
		a, b := aircraft[i], aircraft[j]
		switch by {
		case sortByCallsign:
			if (a.Callsign == "") != (b.Callsign == "") {
				return a.Callsign != ""
			}
			return a.Callsign < b.Callsign
		case sortByAltitude:
			if a.Altitude == nil || b.Altitude == nil {
				return a.Altitude != nil && b.Altitude == nil
			}
			return *a.Altitude > *b.Altitude
		default:
			return lessPtr(a.DistanceKm, b.DistanceKm)
		}
	})
}

// lessPtr orders nil after every value.
func lessPtr(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("237")).Bold(true)
	routeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const rowFormat = "%-8s %-7s %-6s %7s %6s %4s %8s  %s"

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("skyroute  %s", m.observer)))
	b.WriteString("\n")

	status := fmt.Sprintf("%d aircraft, sorted by %s", len(m.aircraft), m.sortBy)
	if !m.lastUpdate.IsZero() {
		status += ", updated " + m.lastUpdate.Format("15:04:05")
	}
	if m.loading {
		status += " (refreshing)"
	}
	b.WriteString(dimStyle.Render(status))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf(rowFormat, "CALLSIGN", "HEX", "TYPE", "ALT", "NM", "DIR", "BRG", "ROUTE")))
	b.WriteString("\n")

	if len(m.aircraft) == 0 && !m.loading {
		b.WriteString(dimStyle.Render("  No aircraft in range"))
		b.WriteString("\n")
	}

	// Leave room for the header lines and help footer.
	rows := max(m.height-8, 1)
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := min(start+rows, len(m.aircraft))

	for i := start; i < end; i++ {
		line := formatRow(m.aircraft[i])
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ select  s sort  r refresh  q quit"))
	return b.String()
}

func formatRow(a enrich.Aircraft) string {
	return fmt.Sprintf(rowFormat,
		orDash(a.Callsign),
		a.Hex,
		orDash(a.Model),
		formatFloat(a.Altitude, "%.0f"),
		formatFloat(distanceNM(a.DistanceKm), "%.1f"),
		derefOr(a.Direction, "-"),
		formatFloat(a.Bearing, "%.0f°"),
		routeStyle.Render(formatRoute(a)),
	)
}

// formatRoute renders "CYYZ Toronto, CA -> KLAX Los Angeles, US".
func formatRoute(a enrich.Aircraft) string {
	if a.Origin == nil || a.Destination == nil {
		return ""
	}
	side := func(code string, name *string) string {
		if name == nil {
			return code
		}
		return code + " " + *name
	}
	return side(*a.Origin, a.OriginName) + " -> " + side(*a.Destination, a.DestinationName)
}

// distanceNM shows distance in the same unit as the feed radius.
func distanceNM(km *float64) *float64 {
	if km == nil {
		return nil
	}
	nm := coordinates.KmToNauticalMiles(*km)
	return &nm
}

func formatFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
