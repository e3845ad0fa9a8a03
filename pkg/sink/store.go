// Package sink persists classified outcomes: one product file per batch in an
// object store, plus three append-only error tables on local disk.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedStorage is returned for an unknown storage type.
var ErrUnsupportedStorage = errors.New("unsupported storage type")

// Storage types accepted by NewObjectStore.
const (
	StorageFS  = "fs"
	StorageS3  = "s3"
	StorageGCS = "gcs"
)

// ObjectStore writes whole objects. Write must not report success until the
// object is durable, and must never expose a partially written object.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

// StorageConfig selects and configures the product batch store.
type StorageConfig struct {
	// Type is one of fs, s3, gcs
	Type string

	// LocalPath is the base directory for fs
	LocalPath string

	// Bucket for s3 and gcs
	Bucket string
	// Prefix is prepended to every object key
	Prefix string

	// Region and Endpoint for s3; Endpoint targets S3-compatible services
	Region   string
	Endpoint string
}

// NewObjectStore creates the store selected by cfg.Type.
func NewObjectStore(ctx context.Context, cfg StorageConfig) (ObjectStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "", StorageFS:
		return NewLocalStore(cfg.LocalPath)
	case StorageS3:
		return NewS3Store(ctx, cfg)
	case StorageGCS:
		return NewGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStorage, cfg.Type)
	}
}

// objectKey joins a prefix and a key with a single slash.
func objectKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
