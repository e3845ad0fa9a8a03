package sink

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStore writes objects to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore uses application default credentials and verifies bucket access.
func NewGCSStore(ctx context.Context, cfg StorageConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("access bucket %s: %w", cfg.Bucket, err)
	}

	return &GCSStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Write implements ObjectStore. The object is committed when the writer closes.
func (s *GCSStore) Write(ctx context.Context, key string, data []byte) error {
	objKey := objectKey(s.prefix, key)

	w := s.client.Bucket(s.bucket).Object(objKey).NewWriter(ctx)
	w.ContentType = "application/json; charset=utf-8"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write GCS object %s: %w", objKey, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s: %w", objKey, err)
	}
	return nil
}

// Close implements ObjectStore.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
