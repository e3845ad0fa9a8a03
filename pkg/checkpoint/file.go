package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/Sternrassler/product-collector/internal/fsutil"
	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/rs/zerolog"
)

// FileStore keeps the cursor as a decimal integer in a single text file.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a store backed by path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		logger: logging.NewLogger(logging.ComponentCheckpoint).With().Str("path", path).Logger(),
	}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug().Msg("No checkpoint found, starting from first batch")
		checkpointBatch.Set(FirstBatch)
		return FirstBatch, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	next, err := parse(string(data))
	if err != nil {
		return 0, fmt.Errorf("checkpoint %s: %w", s.path, err)
	}

	checkpointBatch.Set(float64(next))
	s.logger.Info().Int("next_batch", next).Msg("Loaded checkpoint")
	return next, nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, next int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(next); err != nil {
		return err
	}

	if err := fsutil.WriteAtomic(s.path, []byte(strconv.Itoa(next)), 0o644); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	checkpointBatch.Set(float64(next))
	s.logger.Debug().Int("next_batch", next).Msg("Checkpoint saved")
	return nil
}

// Clear removes the checkpoint file; a missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
