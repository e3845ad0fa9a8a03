// Package cache provides a Redis-backed cache of successfully fetched products.
//
// The collector may revisit an identifier more than once: a checkpointed run that
// crashed mid-batch re-fetches the whole batch on restart, and the streaming mode
// always starts from the beginning. Caching successful product records lets those
// re-fetches skip the network.
//
// Only successes are cached. 404s and errors are never stored, so a product that
// appears later is picked up on the next run.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, 24*time.Hour)
//
//	entry, err := manager.Get(ctx, cache.Key{ProductID: "74021317"})
//	if err == cache.ErrCacheMiss {
//		// fetch from the API, then:
//		_ = manager.Set(ctx, cache.Key{ProductID: "74021317"}, cache.NewEntry(p, 24*time.Hour))
//	}
//
// # Metrics
//
//   - collector_cache_hits_total - Cache hits
//   - collector_cache_misses_total - Cache misses
//   - collector_cache_errors_total{operation} - Cache operation errors
package cache
