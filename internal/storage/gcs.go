package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// GCSConfig configures the Google Cloud Storage (Firebase Storage) driver.
// Without explicit credentials the client falls back to application default
// credentials.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	CredentialsJSON string
}

// GCSClient implements ObjectStorage on a single GCS bucket.
type GCSClient struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

func NewGCSClient(ctx context.Context, cfg GCSConfig) (*GCSClient, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket must be provided")
	}

	opts, err := gcsClientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create storage client: %w", err)
	}

	return &GCSClient{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
	}, nil
}

func gcsClientOptions(ctx context.Context, cfg GCSConfig) ([]option.ClientOption, error) {
	raw := []byte(cfg.CredentialsJSON)
	if len(raw) == 0 && cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read gcs credentials file: %w", err)
		}
		raw = b
	}
	if len(raw) == 0 {
		return nil, nil
	}

	creds, err := google.CredentialsFromJSON(ctx, raw, gcs.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("unable to parse gcs credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

// DeleteObject removes key from the bucket. ErrBucketNotExist is not
// swallowed.
func (c *GCSClient) DeleteObject(ctx context.Context, key string) error {
	err := c.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

func (c *GCSClient) Close() error {
	return c.client.Close()
}

var _ ObjectStorage = (*GCSClient)(nil)
