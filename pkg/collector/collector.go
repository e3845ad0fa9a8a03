// Package collector wires the pipeline: it reads the resume cursor, dispatches
// identifiers to the worker pool, groups outcomes into batches, persists each
// batch and then advances the checkpoint.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/product-collector/pkg/batch"
	"github.com/Sternrassler/product-collector/pkg/checkpoint"
	"github.com/Sternrassler/product-collector/pkg/dispatch"
	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/Sternrassler/product-collector/pkg/sink"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mode selects the batching policy.
type Mode string

const (
	// ModeCheckpointed splits the input into numbered chunks and checkpoints after
	// every persisted chunk. An interrupted run resumes at the first incomplete chunk.
	ModeCheckpointed Mode = "checkpointed"

	// ModeStreaming batches successes by count as they arrive and writes failures
	// at the end. It keeps no checkpoint and always starts from scratch.
	ModeStreaming Mode = "streaming"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCheckpointed, ModeStreaming:
		return Mode(s), nil
	case "":
		return ModeCheckpointed, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %s or %s)", s, ModeCheckpointed, ModeStreaming)
	}
}

// Config holds collector configuration.
type Config struct {
	Mode      Mode
	BatchSize int
	Workers   int

	// ProgressEvery logs progress every N outcomes; 0 disables it
	ProgressEvery int
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeCheckpointed,
		BatchSize:     1000,
		Workers:       dispatch.DefaultWorkers,
		ProgressEvery: 100,
	}
}

// Summary reports what a run did.
type Summary struct {
	Mode       Mode
	Counts     batch.Counts
	Batches    int
	StartBatch int
	// NextBatch is the checkpoint after the run (checkpointed mode)
	NextBatch int
	Duration  time.Duration
	// RunID tags every log line of the collector that produced the run
	RunID string
}

// Collector runs the pipeline.
type Collector struct {
	config     Config
	pool       *dispatch.Pool
	writer     *sink.Writer
	checkpoint checkpoint.Store
	runID      string
	logger     zerolog.Logger
}

// New creates a collector. store may be nil in streaming mode.
func New(cfg Config, fetcher dispatch.Fetcher, writer *sink.Writer, store checkpoint.Store) (*Collector, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer is required")
	}

	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode

	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1 (got %d)", cfg.BatchSize)
	}
	if cfg.Mode == ModeCheckpointed && store == nil {
		return nil, fmt.Errorf("checkpoint store is required in %s mode", ModeCheckpointed)
	}

	pool := dispatch.NewPool(fetcher, dispatch.Config{Workers: cfg.Workers})
	runID := uuid.NewString()

	return &Collector{
		config:     cfg,
		pool:       pool,
		writer:     writer,
		checkpoint: store,
		runID:      runID,
		logger: logging.NewLogger(logging.ComponentCollector).With().
			Str("mode", string(cfg.Mode)).
			Str("run_id", runID).
			Logger(),
	}, nil
}

// Run processes ids according to the configured mode. Per-identifier failures
// never fail the run; sink and checkpoint errors do, as does cancellation.
func (c *Collector) Run(ctx context.Context, ids []string) (Summary, error) {
	start := time.Now()

	var (
		summary Summary
		err     error
	)
	switch c.config.Mode {
	case ModeStreaming:
		summary, err = c.runStreaming(ctx, ids)
	default:
		summary, err = c.runCheckpointed(ctx, ids)
	}

	summary.Mode = c.config.Mode
	summary.RunID = c.runID
	summary.Duration = time.Since(start)

	event := c.logger.Info()
	if err != nil {
		event = c.logger.Error().Err(err)
	}
	event.
		Int("batches", summary.Batches).
		Int("products", summary.Counts.Products).
		Int("not_found", summary.Counts.NotFound).
		Int("http_errors", summary.Counts.HTTPErrors).
		Int("timeouts", summary.Counts.Timeouts).
		Dur("duration", summary.Duration).
		Msg("Collection finished")

	return summary, err
}

func (c *Collector) runCheckpointed(ctx context.Context, ids []string) (Summary, error) {
	next, err := c.checkpoint.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load checkpoint: %w", err)
	}

	summary := Summary{StartBatch: next, NextBatch: next}
	total := batch.Total(len(ids), c.config.BatchSize)
	chunks := batch.Split(ids, c.config.BatchSize, next)

	if len(chunks) == 0 {
		c.logger.Info().
			Int("start_batch", next).
			Int("total_batches", total).
			Msg("Nothing to do, all batches already processed")
		return summary, nil
	}

	c.logger.Info().
		Int("start_batch", next).
		Int("total_batches", total).
		Int("ids", len(ids)).
		Int("workers", c.pool.Workers()).
		Msg("Starting collection")

	for _, chunk := range chunks {
		outcomes := c.pool.Dispatch(ctx, chunk.IDs)
		part, err := batch.Collect(ctx, outcomes, len(chunk.IDs), c.progress(chunk.Number, len(chunk.IDs)))
		if err != nil {
			return summary, fmt.Errorf("batch %d: %w", chunk.Number, err)
		}

		if err := c.writer.Persist(ctx, chunk.Number, part); err != nil {
			return summary, err
		}

		if err := c.checkpoint.Save(ctx, chunk.Number+1); err != nil {
			return summary, fmt.Errorf("save checkpoint after batch %d: %w", chunk.Number, err)
		}

		counts := part.Counts()
		summary.Counts.Add(counts)
		summary.Batches++
		summary.NextBatch = chunk.Number + 1

		c.logger.Info().
			Int("batch", chunk.Number).
			Int("total_batches", total).
			Int("products", counts.Products).
			Int("not_found", counts.NotFound).
			Int("http_errors", counts.HTTPErrors).
			Int("timeouts", counts.Timeouts).
			Msg("Batch persisted")
	}

	return summary, nil
}

func (c *Collector) runStreaming(ctx context.Context, ids []string) (Summary, error) {
	summary := Summary{StartBatch: checkpoint.FirstBatch}

	if err := c.writer.Reset(); err != nil {
		return summary, fmt.Errorf("reset error sinks: %w", err)
	}

	c.logger.Info().
		Int("ids", len(ids)).
		Int("workers", c.pool.Workers()).
		Int("threshold", c.config.BatchSize).
		Msg("Starting collection")

	streamer := batch.NewStreamer(c.config.BatchSize)
	progress := c.progress(0, len(ids))
	done := 0
	var flushErr error

	// The channel is drained even after a failed flush so the workers can exit.
	for o := range c.pool.Dispatch(ctx, ids) {
		done++
		if progress != nil {
			progress(done)
		}
		if flushErr != nil {
			continue
		}

		flush, ok := streamer.Add(o)
		if !ok {
			continue
		}
		if err := c.writer.WriteProducts(ctx, flush.Number, flush.Products); err != nil {
			flushErr = err
			continue
		}
		summary.Batches++
	}

	if flushErr != nil {
		summary.Counts = streamer.Counts()
		return summary, flushErr
	}
	if err := ctx.Err(); err != nil {
		summary.Counts = streamer.Counts()
		return summary, fmt.Errorf("streaming run interrupted, restart from scratch: %w", err)
	}

	tail, ok, errs := streamer.Finish()
	if ok {
		if err := c.writer.WriteProducts(ctx, tail.Number, tail.Products); err != nil {
			return summary, err
		}
		summary.Batches++
	}

	if err := c.writer.PersistErrors(errs); err != nil {
		return summary, fmt.Errorf("write error sinks: %w", err)
	}

	summary.Counts = streamer.Counts()
	if done != len(ids) {
		return summary, fmt.Errorf("%w: %d outcomes for %d ids", batch.ErrIncompleteBatch, done, len(ids))
	}
	return summary, nil
}

// progress returns a callback logging every ProgressEvery outcomes.
func (c *Collector) progress(batchNumber, total int) func(done int) {
	every := c.config.ProgressEvery
	if every <= 0 {
		return nil
	}
	return func(done int) {
		if done%every != 0 && done != total {
			return
		}
		event := c.logger.Info().
			Int("fetched", done).
			Int("total", total).
			Float64("progress_pct", float64(done)/float64(total)*100)
		if batchNumber > 0 {
			event = event.Int("batch", batchNumber)
		}
		event.Msg("Fetch progress")
	}
}

// IsInterrupted reports whether err came from a cancelled run.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, batch.ErrIncompleteBatch)
}
