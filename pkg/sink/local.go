package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/product-collector/internal/fsutil"
)

// LocalStore writes objects as files below a base directory.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if basePath == "" {
		basePath = "."
	}

	if basePath == "~" || strings.HasPrefix(basePath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		basePath = filepath.Join(home, strings.TrimPrefix(basePath[1:], "/"))
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &LocalStore{basePath: absPath}, nil
}

// BasePath returns the absolute base directory.
func (s *LocalStore) BasePath() string {
	return s.basePath
}

// Path returns the file path for key, rejecting keys that escape the base directory.
func (s *LocalStore) Path(key string) (string, error) {
	cleanKey := filepath.Clean(key)
	if filepath.IsAbs(cleanKey) {
		return "", fmt.Errorf("absolute paths not allowed in key: %s", key)
	}

	fullPath := filepath.Join(s.basePath, cleanKey)
	rel, err := filepath.Rel(s.basePath, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key path: %s", key)
	}
	return fullPath, nil
}

// Write implements ObjectStore with an atomic replace.
func (s *LocalStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.Path(key)
	if err != nil {
		return err
	}

	if err := fsutil.WriteAtomic(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fullPath, err)
	}
	return nil
}

// Close implements ObjectStore.
func (s *LocalStore) Close() error {
	return nil
}
