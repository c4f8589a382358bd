package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/skyroute/pkg/enrich"
)

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }

func testAircraft() []enrich.Aircraft {
	return []enrich.Aircraft{
		{Hex: "a", Callsign: "UAL1", DistanceKm: f64(80), Altitude: f64(10000)},
		{Hex: "b", Callsign: "", DistanceKm: nil, Altitude: f64(37000)},
		{Hex: "c", Callsign: "ACA123", DistanceKm: f64(12.5), Altitude: nil,
			Direction: str("NE"), Bearing: f64(44),
			Origin: str("CYYZ"), Destination: str("KLAX"),
			OriginName: str("Toronto, CA")},
	}
}

func hexes(aircraft []enrich.Aircraft) string {
	var b strings.Builder
	for _, a := range aircraft {
		b.WriteString(a.Hex)
	}
	return b.String()
}

func TestSortAircraft(t *testing.T) {
	tests := []struct {
		by   sortMode
		want string
	}{
		{sortByDistance, "cab"},
		{sortByCallsign, "cab"},
		{sortByAltitude, "bac"},
	}

	for _, tt := range tests {
		t.Run(tt.by.String(), func(t *testing.T) {
			aircraft := testAircraft()
			sortAircraft(aircraft, tt.by)
			if got := hexes(aircraft); got != tt.want {
				t.Errorf("Expected order %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFormatRoute(t *testing.T) {
	a := testAircraft()[2]
	if got := formatRoute(a); got != "CYYZ Toronto, CA -> KLAX" {
		t.Errorf("Unexpected route: %q", got)
	}
	if got := formatRoute(testAircraft()[0]); got != "" {
		t.Errorf("Expected empty route, got %q", got)
	}
}

func TestFormatRowShowsNauticalMiles(t *testing.T) {
	aircraft := testAircraft()

	// 80 km is 43.2 NM.
	if row := formatRow(aircraft[0]); !strings.Contains(row, " 43.2 ") {
		t.Errorf("Expected distance 43.2 NM in row, got %q", row)
	}
	if row := formatRow(aircraft[1]); !strings.Contains(row, "  - ") {
		t.Errorf("Expected dash for unknown distance, got %q", row)
	}
}

func TestUpdateAppliesSnapshot(t *testing.T) {
	m := newModel(nil, time.Second, "YYZ")

	next, cmd := m.Update(snapshotMsg{aircraft: testAircraft(), at: time.Now()})
	m = next.(model)

	if m.loading {
		t.Error("Expected loading cleared")
	}
	if cmd == nil {
		t.Error("Expected a tick to be scheduled")
	}
	if got := hexes(m.aircraft); got != "cab" {
		t.Errorf("Expected distance order cab, got %s", got)
	}

	view := m.View()
	for _, want := range []string{"ACA123", "CYYZ Toronto, CA -> KLAX", "3 aircraft"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestUpdateKeepsDataOnError(t *testing.T) {
	m := newModel(nil, time.Second, "YYZ")
	next, _ := m.Update(snapshotMsg{aircraft: testAircraft(), at: time.Now()})
	m = next.(model)

	next, _ = m.Update(snapshotMsg{err: errors.New("feed down")})
	m = next.(model)

	if len(m.aircraft) != 3 {
		t.Errorf("Expected previous aircraft kept, got %d", len(m.aircraft))
	}
	if !strings.Contains(m.View(), "feed down") {
		t.Error("Expected error in view")
	}
}

func TestUpdateKeys(t *testing.T) {
	m := newModel(nil, time.Second, "YYZ")
	next, _ := m.Update(snapshotMsg{aircraft: testAircraft(), at: time.Now()})
	m = next.(model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(model)
	if m.selected != 1 {
		t.Errorf("Expected selection 1, got %d", m.selected)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	m = next.(model)
	if m.sortBy != sortByCallsign {
		t.Errorf("Expected callsign sort, got %s", m.sortBy)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected QuitMsg")
	}
}

func TestLoadUsesFetch(t *testing.T) {
	called := false
	m := newModel(func(ctx context.Context) ([]enrich.Aircraft, error) {
		called = true
		return testAircraft(), nil
	}, time.Second, "YYZ")

	msg := m.Init()()
	snap, ok := msg.(snapshotMsg)
	if !ok {
		t.Fatalf("Expected snapshotMsg, got %T", msg)
	}
	if !called || len(snap.aircraft) != 3 {
		t.Errorf("Expected fetch to be used, got %d aircraft", len(snap.aircraft))
	}
}
