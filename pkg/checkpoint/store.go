// Package checkpoint persists the collector's resume cursor: the number of the
// next batch to process. Every batch below the cursor has been fully persisted.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FirstBatch is the cursor value when no checkpoint exists.
const FirstBatch = 1

// ErrInvalidCheckpoint is returned when stored checkpoint content cannot be parsed.
var ErrInvalidCheckpoint = errors.New("invalid checkpoint")

var checkpointBatch = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "collector_checkpoint_batch",
	Help: "Next batch number recorded by the checkpoint store",
})

// Store loads and saves the resume cursor.
type Store interface {
	// Load returns the next batch to process, FirstBatch when none was saved.
	Load(ctx context.Context) (int, error)
	// Save durably records next. It must only return nil once the value is durable.
	Save(ctx context.Context, next int) error
}

// parse decodes a stored cursor value.
func parse(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidCheckpoint)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidCheckpoint, s, err)
	}
	if n < FirstBatch {
		return 0, fmt.Errorf("%w: %d is below %d", ErrInvalidCheckpoint, n, FirstBatch)
	}
	return n, nil
}

func validate(next int) error {
	if next < FirstBatch {
		return fmt.Errorf("%w: cannot save %d", ErrInvalidCheckpoint, next)
	}
	return nil
}
