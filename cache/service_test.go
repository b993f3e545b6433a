package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type snapshot struct {
	ID   int64
	Name string
	Tags []string
}

func newTestService(t *testing.T) CacheService {
	t.Helper()
	svc, err := NewCacheService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	return svc
}

func TestGetPut_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, ok := Get[snapshot](ctx, svc, "author", 1); ok {
		t.Fatal("expected miss on empty cache")
	}

	want := snapshot{ID: 1, Name: "Jane", Tags: []string{"a", "b"}}
	if err := Put(ctx, svc, "author", 1, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := Get[snapshot](ctx, svc, "author", 1)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.Name != want.Name || len(got.Tags) != 2 {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestGet_ReturnsPrivateCopy(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if err := Put(ctx, svc, "author", 1, snapshot{ID: 1, Tags: []string{"a"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	first, _ := Get[snapshot](ctx, svc, "author", 1)
	first.Tags[0] = "mutated"
	first.Name = "mutated"

	second, _ := Get[snapshot](ctx, svc, "author", 1)
	if second.Tags[0] != "a" || second.Name != "" {
		t.Fatalf("cached entry was mutated through a returned value: %+v", second)
	}
}

func TestGet_DecodeFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	svc.Put(ctx, "author", Key(1), []byte{0xc1})

	if _, ok := Get[snapshot](ctx, svc, "author", 1); ok {
		t.Fatal("expected undecodable entry to be reported as a miss")
	}
	if _, ok := svc.Get(ctx, "author", Key(1)); ok {
		t.Fatal("expected undecodable entry to be dropped")
	}
}

func TestGetOrFetch_CachesResult(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	calls := 0
	fetch := func(ctx context.Context) (snapshot, error) {
		calls++
		return snapshot{ID: 3, Name: "tech"}, nil
	}

	for range 3 {
		got, err := GetOrFetch(ctx, svc, "keyword", 3, fetch)
		if err != nil {
			t.Fatalf("GetOrFetch: %v", err)
		}
		if got.Name != "tech" {
			t.Fatalf("unexpected value %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single fetch, got %d", calls)
	}
}

func TestGetOrFetch_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	boom := errors.New("boom")

	calls := 0
	fetch := func(ctx context.Context) (snapshot, error) {
		calls++
		return snapshot{}, boom
	}

	for range 2 {
		if _, err := GetOrFetch(ctx, svc, "keyword", 3, fetch); !errors.Is(err, boom) {
			t.Fatalf("expected fetch error, got %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected every call to reach the fetch function, got %d", calls)
	}
	if _, ok := svc.Get(ctx, "keyword", Key(3)); ok {
		t.Fatal("error result must not be cached")
	}
}

func TestGetOrFetch_InvalidationDuringFetchDiscardsResult(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	got, err := GetOrFetch(ctx, svc, "article", 9, func(ctx context.Context) (snapshot, error) {
		Invalidate(ctx, svc, "article", 9)
		return snapshot{ID: 9, Name: "stale"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if got.Name != "stale" {
		t.Fatalf("caller should still receive the fetched value, got %+v", got)
	}
	if _, ok := Get[snapshot](ctx, svc, "article", 9); ok {
		t.Fatal("a value fetched across an invalidation must not be cached")
	}
}

func TestInvalidate_RemovesEntries(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, id := range []int64{1, 2, 3} {
		if err := Put(ctx, svc, "author", id, snapshot{ID: id}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	Invalidate(ctx, svc, "author", 1, 3, 42)

	if _, ok := Get[snapshot](ctx, svc, "author", 1); ok {
		t.Error("expected id 1 invalidated")
	}
	if _, ok := Get[snapshot](ctx, svc, "author", 2); !ok {
		t.Error("expected id 2 untouched")
	}
	if _, ok := Get[snapshot](ctx, svc, "author", 3); ok {
		t.Error("expected id 3 invalidated")
	}
}

func TestGetOrFetch_ConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var (
		mu      sync.Mutex
		current = "v0"
	)
	source := func(ctx context.Context) (snapshot, error) {
		mu.Lock()
		defer mu.Unlock()
		return snapshot{ID: 1, Name: current}, nil
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 50 {
				if i == 0 && j%10 == 0 {
					mu.Lock()
					current = time.Now().String()
					mu.Unlock()
					Invalidate(ctx, svc, "article", 1)
					continue
				}
				if _, err := GetOrFetch(ctx, svc, "article", 1, source); err != nil {
					t.Errorf("GetOrFetch: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	got, err := GetOrFetch(ctx, svc, "article", 1, source)
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	mu.Lock()
	want := current
	mu.Unlock()
	if got.Name != want {
		t.Fatalf("cache served a stale value after writers settled: got %q want %q", got.Name, want)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "redis backend", mutate: func(c *Config) { c.Backend = BackendRedis }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "memcached" }, wantErr: true},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewCacheService_RedisRequiresClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendRedis
	if _, err := NewCacheService(cfg); err == nil {
		t.Fatal("expected error when redis backend has no client")
	}
}

type countingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (o *countingObserver) Hit(string)         { o.mu.Lock(); o.hits++; o.mu.Unlock() }
func (o *countingObserver) Miss(string)        { o.mu.Lock(); o.misses++; o.mu.Unlock() }
func (o *countingObserver) Fault(string)       {}
func (o *countingObserver) Invalidated(string) {}

func TestNewCacheService_WithObserver(t *testing.T) {
	ctx := context.Background()
	obs := &countingObserver{}
	svc, err := NewCacheService(DefaultConfig(), WithObserver(obs))
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}

	Get[snapshot](ctx, svc, "author", 1)
	_ = Put(ctx, svc, "author", 1, snapshot{ID: 1})
	Get[snapshot](ctx, svc, "author", 1)

	if obs.hits != 1 || obs.misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got %d/%d", obs.hits, obs.misses)
	}
}

func TestGetManyOrFetch_BatchesMisses(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if err := Put(ctx, svc, "author", 1, snapshot{ID: 1, Name: "cached"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var batches [][]int64
	fetch := func(ctx context.Context, ids []int64) (map[int64]snapshot, error) {
		batches = append(batches, append([]int64(nil), ids...))
		out := make(map[int64]snapshot)
		for _, id := range ids {
			if id == 404 {
				continue
			}
			out[id] = snapshot{ID: id, Name: "fetched"}
		}
		return out, nil
	}

	got, err := GetManyOrFetch(ctx, svc, "author", []int64{1, 2, 3, 2, 404}, fetch)
	if err != nil {
		t.Fatalf("GetManyOrFetch: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(batches))
	}
	if want := []int64{2, 3, 404}; len(batches[0]) != len(want) {
		t.Fatalf("expected batch %v, got %v", want, batches[0])
	}
	if len(got) != 3 || got[1].Name != "cached" || got[2].Name != "fetched" {
		t.Fatalf("unexpected result %+v", got)
	}
	if _, ok := got[404]; ok {
		t.Fatal("ids missing from the fetch result must be absent")
	}

	got, err = GetManyOrFetch(ctx, svc, "author", []int64{1, 2, 3}, fetch)
	if err != nil {
		t.Fatalf("GetManyOrFetch: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected second call to be served from cache, got %d batches", len(batches))
	}
	if len(got) != 3 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestGetManyOrFetch_Error(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	boom := errors.New("boom")

	_, err := GetManyOrFetch(ctx, svc, "author", []int64{1}, func(ctx context.Context, ids []int64) (map[int64]snapshot, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, ok := svc.Get(ctx, "author", Key(1)); ok {
		t.Fatal("nothing should be cached after a failed fetch")
	}
}
