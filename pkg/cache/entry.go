package cache

import (
	"time"

	"github.com/Sternrassler/product-collector/pkg/product"
)

// Entry is a cached product record.
type Entry struct {
	// Product is the parsed record as it would be written to a batch file
	Product *product.Product `json:"product"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this record
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry wraps p in an entry that expires after ttl.
func NewEntry(p *product.Product, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Product:  p,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
