package backup

import "context"

// Config controls the post-import snapshot.
type Config struct {
	LocalDir  string // empty disables snapshots
	KeepLast  int
	BucketURL string // s3://bucket/prefix, optional

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
	S3UseSSL       bool
}

// Snapshotter is the minimal DB snapshot contract used by Publisher.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}

// Uploader uploads one snapshot file.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
