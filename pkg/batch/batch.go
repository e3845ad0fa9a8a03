// Package batch groups fetch outcomes into persistable units.
//
// Two policies are supported. Input-aligned batching splits the identifier list
// into numbered chunks before dispatch and collects every outcome of a chunk
// into a Partition. Output-aligned batching (Streamer) only counts successes
// toward a size threshold and holds failures until the end of the run.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/product-collector/pkg/product"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrIncompleteBatch is returned when the outcome stream ends before every
// identifier of a chunk has reported.
var ErrIncompleteBatch = errors.New("incomplete batch")

var outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "collector_outcomes_total",
	Help: "Total classified outcomes by status",
}, []string{"status"})

// Chunk is one input-aligned group of identifiers.
type Chunk struct {
	// Number is 1-based and stable for a given input and size.
	Number int
	IDs    []string
}

// Split partitions ids into chunks of size and returns the chunks numbered
// start or higher. A start beyond the last chunk yields no chunks.
func Split(ids []string, size, start int) []Chunk {
	if size <= 0 {
		size = len(ids)
	}
	if start < 1 {
		start = 1
	}
	if len(ids) == 0 {
		return nil
	}

	var chunks []Chunk
	for i, number := 0, 1; i < len(ids); i, number = i+size, number+1 {
		if number < start {
			continue
		}
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, Chunk{Number: number, IDs: ids[i:end]})
	}
	return chunks
}

// Total returns how many chunks Split produces for n ids.
func Total(n, size int) int {
	if n == 0 {
		return 0
	}
	if size <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ErrorRecord is one failed identifier with its status code (0 for timeouts).
type ErrorRecord struct {
	ID   string
	Code int
}

// Partition holds the outcomes of one batch split by category.
type Partition struct {
	Products   []*product.Product
	NotFound   []ErrorRecord
	HTTPErrors []ErrorRecord
	Timeouts   []ErrorRecord
}

// Add files an outcome under its category.
func (p *Partition) Add(o product.Outcome) {
	outcomesTotal.WithLabelValues(string(o.Status)).Inc()

	switch o.Status {
	case product.StatusSuccess:
		if o.Product != nil {
			p.Products = append(p.Products, o.Product)
			return
		}
		// a success without a record cannot be persisted as a product
		p.Timeouts = append(p.Timeouts, ErrorRecord{ID: o.ID})
	case product.StatusNotFound:
		p.NotFound = append(p.NotFound, ErrorRecord{ID: o.ID, Code: o.StatusCode})
	case product.StatusHTTPError:
		p.HTTPErrors = append(p.HTTPErrors, ErrorRecord{ID: o.ID, Code: o.StatusCode})
	default:
		p.Timeouts = append(p.Timeouts, ErrorRecord{ID: o.ID})
	}
}

// Len returns the number of outcomes in the partition.
func (p *Partition) Len() int {
	return len(p.Products) + len(p.NotFound) + len(p.HTTPErrors) + len(p.Timeouts)
}

// Counts returns per-category totals.
func (p *Partition) Counts() Counts {
	return Counts{
		Products:   len(p.Products),
		NotFound:   len(p.NotFound),
		HTTPErrors: len(p.HTTPErrors),
		Timeouts:   len(p.Timeouts),
	}
}

// Counts are per-category outcome totals.
type Counts struct {
	Products   int `json:"products"`
	NotFound   int `json:"not_found"`
	HTTPErrors int `json:"http_errors"`
	Timeouts   int `json:"timeouts"`
}

// Add accumulates other into c.
func (c *Counts) Add(other Counts) {
	c.Products += other.Products
	c.NotFound += other.NotFound
	c.HTTPErrors += other.HTTPErrors
	c.Timeouts += other.Timeouts
}

// Total returns the sum over all categories.
func (c Counts) Total() int {
	return c.Products + c.NotFound + c.HTTPErrors + c.Timeouts
}

// Failures returns the number of non-success outcomes.
func (c Counts) Failures() int {
	return c.NotFound + c.HTTPErrors + c.Timeouts
}

// Collect drains outcomes into a partition. It returns ErrIncompleteBatch if
// the stream closes short of expected or ctx was cancelled, since outcomes
// produced under a cancelled context may be cut short rather than final. The
// channel is always drained so the producer can finish.
func Collect(ctx context.Context, outcomes <-chan product.Outcome, expected int, progress func(done int)) (*Partition, error) {
	p := &Partition{}

	for o := range outcomes {
		p.Add(o)
		if progress != nil {
			progress(p.Len())
		}
	}

	if err := ctx.Err(); err != nil {
		return p, fmt.Errorf("%w: %d of %d outcomes: %w", ErrIncompleteBatch, p.Len(), expected, err)
	}
	if p.Len() != expected {
		return p, fmt.Errorf("%w: got %d of %d outcomes", ErrIncompleteBatch, p.Len(), expected)
	}
	return p, nil
}
