package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeSnapshotter struct {
	dbPath string
	data   []byte
}

func (f *fakeSnapshotter) DBPath() string { return f.dbPath }

func (f *fakeSnapshotter) SnapshotTo(dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, f.data, 0644)
}

type recordingUploader struct {
	paths []string
	err   error
}

func (u *recordingUploader) UploadFile(_ context.Context, localPath string) error {
	u.paths = append(u.paths, localPath)
	return u.err
}

func TestNewPublisher_Disabled(t *testing.T) {
	t.Parallel()

	p, err := NewPublisher(&fakeSnapshotter{dbPath: "/tmp/druguse.duckdb"}, Config{})
	if err != nil {
		t.Fatalf("NewPublisher error: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil publisher when no snapshot dir is set")
	}
}

func TestNewPublisher_RequiresDBPath(t *testing.T) {
	t.Parallel()

	_, err := NewPublisher(&fakeSnapshotter{}, Config{LocalDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for in-memory store")
	}
}

func TestPublish_CreatesAndPrunesSnapshots(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	p, err := NewPublisher(&fakeSnapshotter{dbPath: "/data/druguse.duckdb", data: []byte("snapshot")}, Config{
		LocalDir: localDir,
		KeepLast: 2,
	})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	uploader := &recordingUploader{}
	p.uploader = uploader

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	var last string
	for i := 0; i < 3; i++ {
		if last, err = p.Publish(context.Background()); err != nil {
			t.Fatalf("Publish #%d: %v", i+1, err)
		}
	}

	files, err := filepath.Glob(filepath.Join(localDir, "druguse-*.duckdb"))
	if err != nil {
		t.Fatalf("glob snapshots: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("snapshot files = %d, want 2", len(files))
	}
	if filepath.Base(last) != "druguse-20240101-000003.duckdb" {
		t.Errorf("last snapshot = %s", last)
	}
	if _, err := os.Stat(filepath.Join(localDir, "druguse-20240101-000001.duckdb")); !os.IsNotExist(err) {
		t.Error("oldest snapshot was not pruned")
	}
	if len(uploader.paths) != 3 {
		t.Errorf("uploads = %d, want 3", len(uploader.paths))
	}
}

func TestPublish_UploadError(t *testing.T) {
	t.Parallel()

	p, err := NewPublisher(&fakeSnapshotter{dbPath: "/data/druguse.db", data: []byte("x")}, Config{LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	p.uploader = &recordingUploader{err: errors.New("access denied")}

	path, err := p.Publish(context.Background())
	if err == nil {
		t.Fatal("expected upload error")
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("local snapshot missing after failed upload: %v", statErr)
	}
}
