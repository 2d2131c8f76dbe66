package storage

import (
	"context"
	"fmt"

	"github.com/andresuchdata/permitvault/backend-go/internal/config"
)

// ObjectStorage captures the blob-store operations the cleanup path needs.
type ObjectStorage interface {
	// DeleteObject removes key. Deleting an absent object succeeds; a missing
	// bucket or any other backend failure is an error.
	DeleteObject(ctx context.Context, key string) error
	Close() error
}

// New builds the ObjectStorage selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Driver {
	case "", "gcs", "firebase":
		return NewGCSClient(ctx, GCSConfig{
			Bucket:          cfg.Bucket,
			CredentialsFile: cfg.CredentialsFile,
			CredentialsJSON: cfg.CredentialsJSON,
		})
	case "minio", "s3":
		return NewMinioClient(MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case "sevalla":
		return NewSevallaClient(SevallaConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
