package batch

import (
	"github.com/Sternrassler/product-collector/pkg/product"
)

// Streamer implements output-aligned batching: successes are emitted in slices
// of a fixed size as soon as the threshold is reached, failures are held until
// Finish. It keeps no state across runs.
type Streamer struct {
	threshold int
	next      int
	pending   []*product.Product
	errors    Partition
	counts    Counts
}

// Flush is one product slice ready for persistence.
type Flush struct {
	Number   int
	Products []*product.Product
}

// NewStreamer creates a streamer that flushes every threshold products.
func NewStreamer(threshold int) *Streamer {
	if threshold <= 0 {
		threshold = 1
	}
	return &Streamer{threshold: threshold, next: 1}
}

// Add records an outcome and returns a flush when the product threshold is hit.
func (s *Streamer) Add(o product.Outcome) (Flush, bool) {
	if !o.IsSuccess() {
		before := s.errors.Counts()
		s.errors.Add(o)
		after := s.errors.Counts()
		s.counts.NotFound += after.NotFound - before.NotFound
		s.counts.HTTPErrors += after.HTTPErrors - before.HTTPErrors
		s.counts.Timeouts += after.Timeouts - before.Timeouts
		return Flush{}, false
	}

	outcomesTotal.WithLabelValues(string(o.Status)).Inc()
	s.counts.Products++
	s.pending = append(s.pending, o.Product)
	if len(s.pending) < s.threshold {
		return Flush{}, false
	}
	return s.take(), true
}

// Finish returns the trailing product slice (if any) and every held failure.
func (s *Streamer) Finish() (Flush, bool, *Partition) {
	errs := s.errors
	s.errors = Partition{}

	if len(s.pending) == 0 {
		return Flush{}, false, &errs
	}
	return s.take(), true, &errs
}

// Counts returns totals over everything added so far.
func (s *Streamer) Counts() Counts {
	return s.counts
}

func (s *Streamer) take() Flush {
	f := Flush{Number: s.next, Products: s.pending}
	s.next++
	s.pending = nil
	return f
}
