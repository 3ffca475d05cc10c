package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigureRuntimeLoggerWritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "druguse.log")

	cleanup := configureRuntimeLogger(logFile)
	log.Printf("hello from test")
	cleanup()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("log file missing line: %q", data)
	}
}

func TestShortenPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := shortenPath(filepath.Join(home, "data", "druguse.duckdb")); got != filepath.Join("~", "data", "druguse.duckdb") {
		t.Errorf("shortenPath = %q", got)
	}
	if got := shortenPath("/srv/druguse.duckdb"); !strings.HasPrefix(home, "/srv") && got != "/srv/druguse.duckdb" {
		t.Errorf("shortenPath outside home = %q", got)
	}
}
