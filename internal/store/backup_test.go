package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotToInMemoryStore(t *testing.T) {
	store := newTestStore(t, DriverDuckDB)
	err := store.SnapshotTo(filepath.Join(t.TempDir(), "snap.duckdb"))
	if !errors.Is(err, ErrInMemoryStore) {
		t.Fatalf("SnapshotTo err = %v, want ErrInMemoryStore", err)
	}
}

func TestSnapshotToCopiesDatabase(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			store, err := Open(Config{Driver: driver, Path: filepath.Join(dir, "druguse.db")})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer store.Close()
			seed(t, store, testRow("12", "3.9", "3"), testRow("13", "8.5", "6"))

			dst := filepath.Join(dir, "snapshots", "copy.db")
			if err := store.SnapshotTo(dst); err != nil {
				t.Fatalf("SnapshotTo: %v", err)
			}
			if _, err := os.Stat(dst + ".tmp"); !os.IsNotExist(err) {
				t.Errorf("temp file left behind: %v", err)
			}

			snap, err := Open(Config{Driver: driver, Path: dst})
			if err != nil {
				t.Fatalf("open snapshot: %v", err)
			}
			defer snap.Close()
			count, err := snap.RecordCount()
			if err != nil {
				t.Fatalf("RecordCount on snapshot: %v", err)
			}
			if count != 2 {
				t.Errorf("snapshot RecordCount = %d, want 2", count)
			}
		})
	}
}
