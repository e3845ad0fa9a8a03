package cache

import (
	"strings"
)

// DefaultNamespace prefixes every cache key.
const DefaultNamespace = "collector"

// Key identifies a cached product.
type Key struct {
	// Namespace separates caches of different catalogs sharing one Redis (default: "collector")
	Namespace string

	// ProductID is the identifier the product was requested with
	ProductID string
}

// String generates a deterministic cache key string.
// Format: namespace:product:id
//
// Example:
//
//	collector:product:74021317
func (k Key) String() string {
	ns := strings.Trim(k.Namespace, ":")
	if ns == "" {
		ns = DefaultNamespace
	}
	return ns + ":product:" + strings.TrimSpace(k.ProductID)
}
