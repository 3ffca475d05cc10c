package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	defaultKeepLast = 10
	snapshotPrefix  = "druguse-"
)

// Publisher copies a freshly imported database into a snapshot directory and
// optionally uploads the copy to S3.
type Publisher struct {
	store    Snapshotter
	cfg      Config
	uploader Uploader
	now      func() time.Time
}

// NewPublisher validates cfg. It returns nil when snapshots are disabled.
func NewPublisher(store Snapshotter, cfg Config) (*Publisher, error) {
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, fmt.Errorf("backup: db-path is empty (in-memory store)")
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot dir: %w", err)
	}

	p := &Publisher{store: store, cfg: cfg, now: time.Now}
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3u, err := NewS3Uploader(S3Config{
			BucketURL:    cfg.BucketURL,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("backup: init s3 uploader: %w", err)
		}
		p.uploader = s3u
	}
	return p, nil
}

// Publish writes one snapshot, uploads it when configured, and prunes old
// local copies. It returns the local snapshot path.
func (p *Publisher) Publish(ctx context.Context) (string, error) {
	ext := filepath.Ext(p.store.DBPath())
	fileName := snapshotPrefix + p.now().UTC().Format("20060102-150405") + ext
	localPath := filepath.Join(p.cfg.LocalDir, fileName)

	if err := p.store.SnapshotTo(localPath); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	log.Printf("backup: created snapshot %s", localPath)

	if p.uploader != nil {
		if err := p.uploader.UploadFile(ctx, localPath); err != nil {
			return localPath, fmt.Errorf("upload: %w", err)
		}
		log.Printf("backup: uploaded snapshot %s", fileName)
	}

	if err := pruneLocalSnapshots(p.cfg.LocalDir, ext, p.cfg.KeepLast); err != nil {
		return localPath, fmt.Errorf("prune local snapshots: %w", err)
	}
	return localPath, nil
}

func pruneLocalSnapshots(localDir, ext string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(localDir, snapshotPrefix+"*"+ext))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	// timestamp is embedded in the file name, so lexical order is chronological
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
