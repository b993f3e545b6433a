// Package cache provides the region-keyed read cache used by the catalog.
//
// # Overview
//
// A cache is a set of named regions. Each region maps an entity identity to
// an encoded snapshot of that entity and is bounded by its own capacity and
// time-to-live. The catalog uses five regions:
//
//   - "article": scalar article fields
//   - "article.authors": author ids linked to an article
//   - "article.keywords": keyword ids linked to an article
//   - "author" and "keyword": the entities themselves
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig(),
//		cache.WithLogger(logger),
//		cache.WithObserver(metrics.NewCacheMetrics(prometheus.DefaultRegisterer)),
//	)
//
//	rec, err := cache.GetOrFetch(ctx, svc, "author", 7, func(ctx context.Context) (store.AuthorRecord, error) {
//		return authors.Get(ctx, 7)
//	})
//
// # Consistency
//
// Entries are stored msgpack encoded and decoded on every read, so a caller
// always works on a private copy. GetOrFetch reads the key's invalidation
// version before fetching and stores the result only if no invalidation ran
// in between; a slow reader can therefore never restore a value that a
// concurrent writer already invalidated.
//
// # Failures
//
// The cache is never authoritative. Backend errors are logged, counted through
// the Observer and reported to callers as misses. Fetch errors are returned
// and never cached.
//
// # Backends
//
// The default backend keeps each region in a sturdyc cache in process memory.
// Setting Backend to BackendRedis stores regions in Redis under
// "<namespace>::<region>::<id>" keys, guarded by a circuit breaker. Redis
// capacity is governed by the server's maxmemory policy rather than Capacity.
package cache
