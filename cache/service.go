package cache

import (
	"context"
	"strconv"
)

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService is the region-keyed read cache used by the repository decorators.
// Values are opaque encoded bytes; use the typed helpers in this package.
type CacheService interface {
	// Get returns the entry for (region, id). It never consults the store.
	Get(ctx context.Context, region, id string) ([]byte, bool)
	// Put overwrites the entry and resets its expiry clock.
	Put(ctx context.Context, region, id string, value []byte)
	// Version returns the invalidation version of (region, id).
	Version(region, id string) uint64
	// PutIfUnchanged stores value only if no invalidation happened since version was read.
	PutIfUnchanged(ctx context.Context, region, id string, value []byte, version uint64) bool
	// Invalidate removes the entry if present.
	Invalidate(ctx context.Context, region, id string)
	// Clear drops every entry of every region.
	Clear(ctx context.Context) error
}

// Key renders a numeric identity as a region key.
func Key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Get is a type-safe lookup. Entries that fail to decode are dropped and reported as a miss.
func Get[T any](ctx context.Context, service CacheService, region string, id int64) (T, bool) {
	var zero T
	key := Key(id)
	data, ok := service.Get(ctx, region, key)
	if !ok {
		return zero, false
	}
	value, err := decode[T](data)
	if err != nil {
		service.Invalidate(ctx, region, key)
		return zero, false
	}
	return value, true
}

// Put is a type-safe store. It reports encoding failures; nothing is cached in that case.
func Put[T any](ctx context.Context, service CacheService, region string, id int64, value T) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	service.Put(ctx, region, Key(id), data)
	return nil
}

// GetOrFetch implements cache-aside for a single identity: return the cached
// value when present, otherwise call fetchFn and cache its result unless the
// key was invalidated while the fetch was running. Errors from fetchFn are
// returned as is and never cached.
func GetOrFetch[T any](ctx context.Context, service CacheService, region string, id int64, fetchFn FetchFn[T]) (T, error) {
	if value, ok := Get[T](ctx, service, region, id); ok {
		return value, nil
	}

	key := Key(id)
	version := service.Version(region, key)
	value, err := fetchFn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if data, err := encode(value); err == nil {
		service.PutIfUnchanged(ctx, region, key, data, version)
	}
	return value, nil
}

// BatchFetchFn loads the values for ids that missed the cache. Ids absent
// from the returned map are treated as not existing and are not cached.
type BatchFetchFn[T any] func(ctx context.Context, ids []int64) (map[int64]T, error)

// GetManyOrFetch is the batched form of GetOrFetch: every id is looked up in
// the cache and all misses are resolved with a single call to fetchFn.
func GetManyOrFetch[T any](ctx context.Context, service CacheService, region string, ids []int64, fetchFn BatchFetchFn[T]) (map[int64]T, error) {
	out := make(map[int64]T, len(ids))
	var missing []int64
	versions := make(map[int64]uint64)

	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		if _, queued := versions[id]; queued {
			continue
		}
		if value, ok := Get[T](ctx, service, region, id); ok {
			out[id] = value
			continue
		}
		versions[id] = service.Version(region, Key(id))
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := fetchFn(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, value := range fetched {
		version, requested := versions[id]
		if !requested {
			continue
		}
		out[id] = value
		if data, err := encode(value); err == nil {
			service.PutIfUnchanged(ctx, region, Key(id), data, version)
		}
	}
	return out, nil
}

// Invalidate removes the entries for ids in region.
func Invalidate(ctx context.Context, service CacheService, region string, ids ...int64) {
	for _, id := range ids {
		service.Invalidate(ctx, region, Key(id))
	}
}
