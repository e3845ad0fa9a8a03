package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore keeps the cursor in process memory. It does not survive a
// restart and backs the non-resumable streaming mode and tests.
type MemoryStore struct {
	mu    sync.Mutex
	next  int
	saves []int
}

// NewMemoryStore creates a store starting at FirstBatch.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{next: FirstBatch}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, next int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(next); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = next
	s.saves = append(s.saves, next)
	return nil
}

// Saves returns every value saved, in order.
func (s *MemoryStore) Saves() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.saves...)
}
