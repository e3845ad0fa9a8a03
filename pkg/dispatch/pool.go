package dispatch

import (
	"context"
	"runtime"
	"sync"

	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/Sternrassler/product-collector/pkg/product"
	"github.com/rs/zerolog"
)

// DefaultWorkers is the fixed pool size used when none is configured.
const DefaultWorkers = 40

// Config holds pool configuration
type Config struct {
	// Workers is the number of parallel fetches
	Workers int
	// BufferSize of the outcome channel (default: Workers)
	BufferSize int
}

// DefaultConfig returns the default pool configuration
func DefaultConfig() Config {
	return Config{
		Workers:    DefaultWorkers,
		BufferSize: DefaultWorkers,
	}
}

// Fetcher is the interface the product client implements for single-id fetching.
// Fetch must always return an outcome, never panic on remote failures.
type Fetcher interface {
	Fetch(ctx context.Context, id string) product.Outcome
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id string) product.Outcome

// Fetch calls f(ctx, id).
func (f FetcherFunc) Fetch(ctx context.Context, id string) product.Outcome {
	return f(ctx, id)
}

// Pool runs a Fetcher over many identifiers with bounded parallelism
type Pool struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewPool creates a new worker pool
func NewPool(fetcher Fetcher, config Config) *Pool {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.BufferSize <= 0 {
		config.BufferSize = config.Workers
	}

	return &Pool{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentDispatch),
	}
}

// Workers returns the effective parallelism bound.
func (p *Pool) Workers() int {
	return p.config.Workers
}

// Dispatch fetches every id and streams the outcomes in completion order.
// The returned channel is closed once all workers are done. Without
// cancellation it carries exactly one outcome per id; after cancellation
// identifiers not yet handed to a worker produce no outcome. The caller must
// drain the channel.
func (p *Pool) Dispatch(ctx context.Context, ids []string) <-chan product.Outcome {
	results := make(chan product.Outcome, p.config.BufferSize)

	if len(ids) == 0 {
		close(results)
		return results
	}

	queue := make(chan string)

	// Feed identifiers
	go func() {
		defer close(queue)
		for _, id := range ids {
			select {
			case queue <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	workers := p.config.Workers
	if workers > len(ids) {
		workers = len(ids)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.worker(ctx, queue, results, &wg, i)
	}

	// Close results channel when all workers done
	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// worker processes identifiers from the queue
func (p *Pool) worker(ctx context.Context, queue <-chan string, results chan<- product.Outcome, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for id := range queue {
		outcome := p.fetcher.Fetch(ctx, id)

		// The outcome is delivered even after cancellation; the consumer
		// decides whether a partial batch is usable.
		results <- outcome
		processed++

		if ctx.Err() != nil {
			p.logger.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}
	}

	if processed > 0 {
		p.logger.Debug().
			Int("worker_id", workerID).
			Int("processed", processed).
			Msg("Worker completed")
	}
}

// WorkersFor resolves the pool size from the two sizing policies: a fixed
// count, or a multiple of the available CPUs when fixed is zero.
func WorkersFor(fixed, perCPU int) int {
	if fixed > 0 {
		return fixed
	}
	if perCPU > 0 {
		return perCPU * runtime.NumCPU()
	}
	return DefaultWorkers
}
