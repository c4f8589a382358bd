package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"json debug", Config{Level: "debug", Format: "json"}, false},
		{"console warn", Config{Level: "warn", Format: "console"}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if l == nil {
				t.Fatal("Expected logger, got nil")
			}
		})
	}
}

func TestNamedCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).Named("routes").With(String("airline", "ACA"))

	l.Warn("source failed", Error(errors.New("boom")), Int("attempt", 2))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "routes" {
		t.Errorf("Expected logger name routes, got %s", e.LoggerName)
	}
	ctx := e.ContextMap()
	if ctx["airline"] != "ACA" {
		t.Errorf("Expected airline field ACA, got %v", ctx["airline"])
	}
	if ctx["error"] != "boom" {
		t.Errorf("Expected error field boom, got %v", ctx["error"])
	}
}

func TestNewWritesToOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skyroute.log")

	l, err := New(Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	l.Info("hello", String("callsign", "ACA123"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"callsign":"ACA123"`) {
		t.Errorf("Expected callsign field in log file, got: %s", data)
	}
}

func TestOutputFileRotates(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Level: "info", Format: "console", Output: filepath.Join(dir, "skyroute.log"), MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	payload := strings.Repeat("x", 1024)
	for range 1500 {
		l.Info("Snapshot", String("payload", payload))
	}
	_ = l.Sync()

	matches, err := filepath.Glob(filepath.Join(dir, "skyroute-*.log"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("Expected one rotated backup, got %v", matches)
	}

	data, err := os.ReadFile(filepath.Join(dir, "skyroute.log"))
	if err != nil {
		t.Fatalf("Failed to read active log: %v", err)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Error("Expected no color escapes in log file")
	}
}
