package cacheinfra

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// versionStripes is the size of the invalidation version table.
const versionStripes = 1024

// Observer receives cache outcome notifications. All methods must be cheap.
type Observer interface {
	Hit(region string)
	Miss(region string)
	Fault(region string)
	Invalidated(region string)
}

type noopObserver struct{}

func (noopObserver) Hit(string)         {}
func (noopObserver) Miss(string)        {}
func (noopObserver) Fault(string)       {}
func (noopObserver) Invalidated(string) {}

// RegionService holds one backend per named region and implements the
// get/put/invalidate contract on top of them.
//
// Backend faults degrade to misses: a read never fails because the cache
// is unavailable, and writes to a failing backend are dropped.
//
// Every key maps to a striped invalidation version. Invalidate bumps the
// version before deleting, and PutIfUnchanged re-checks the version after
// writing, so a fetch that overlapped an invalidation cannot leave its
// result behind in the cache.
type RegionService struct {
	cfg      Config
	factory  BackendFactory
	logger   *slog.Logger
	observer Observer

	mu      sync.RWMutex
	regions map[string]Backend

	versions [versionStripes]atomic.Uint64
}

// NewRegionService validates cfg and returns a service creating regions
// lazily with factory.
func NewRegionService(cfg Config, factory BackendFactory, logger *slog.Logger, observer Observer) (*RegionService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = SturdycFactory
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &RegionService{
		cfg:      cfg,
		factory:  factory,
		logger:   logger,
		observer: observer,
		regions:  make(map[string]Backend),
	}, nil
}

// Get returns the encoded entry for (region, id). A miss is reported, never synthesized.
func (s *RegionService) Get(ctx context.Context, region, id string) ([]byte, bool) {
	backend, err := s.region(region)
	if err != nil {
		s.fault(region, "get", err)
		return nil, false
	}

	value, ok, err := backend.Get(ctx, id)
	if err != nil {
		s.fault(region, "get", err)
		return nil, false
	}
	if !ok {
		s.observer.Miss(region)
		return nil, false
	}
	s.observer.Hit(region)
	return value, true
}

// Put overwrites the entry for (region, id) and resets its expiry.
func (s *RegionService) Put(ctx context.Context, region, id string, value []byte) {
	backend, err := s.region(region)
	if err != nil {
		s.fault(region, "put", err)
		return
	}
	if err := backend.Set(ctx, id, value); err != nil {
		s.fault(region, "put", err)
	}
}

// Version returns the current invalidation version for (region, id).
func (s *RegionService) Version(region, id string) uint64 {
	return s.stripe(region, id).Load()
}

// PutIfUnchanged stores value only if (region, id) was not invalidated since
// version was read. It reports whether the value was kept.
func (s *RegionService) PutIfUnchanged(ctx context.Context, region, id string, value []byte, version uint64) bool {
	stripe := s.stripe(region, id)
	if stripe.Load() != version {
		return false
	}
	s.Put(ctx, region, id, value)
	if stripe.Load() != version {
		s.delete(ctx, region, id)
		return false
	}
	return true
}

// Invalidate removes the entry for (region, id) if present.
func (s *RegionService) Invalidate(ctx context.Context, region, id string) {
	s.stripe(region, id).Add(1)
	s.delete(ctx, region, id)
	s.observer.Invalidated(region)
}

// Clear drops every entry in every region created so far.
func (s *RegionService) Clear(ctx context.Context) error {
	for i := range s.versions {
		s.versions[i].Add(1)
	}

	s.mu.RLock()
	backends := make(map[string]Backend, len(s.regions))
	for name, backend := range s.regions {
		backends[name] = backend
	}
	s.mu.RUnlock()

	var errs []error
	for name, backend := range backends {
		if err := backend.Clear(ctx); err != nil {
			s.fault(name, "clear", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Regions returns the names of regions created so far.
func (s *RegionService) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.regions))
	for name := range s.regions {
		names = append(names, name)
	}
	return names
}

func (s *RegionService) delete(ctx context.Context, region, id string) {
	backend, err := s.region(region)
	if err != nil {
		s.fault(region, "invalidate", err)
		return
	}
	if err := backend.Delete(ctx, id); err != nil {
		s.fault(region, "invalidate", err)
	}
}

func (s *RegionService) region(name string) (Backend, error) {
	s.mu.RLock()
	backend, ok := s.regions[name]
	s.mu.RUnlock()
	if ok {
		return backend, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if backend, ok := s.regions[name]; ok {
		return backend, nil
	}
	backend, err := s.factory(name, s.cfg.ForRegion(name))
	if err != nil {
		return nil, err
	}
	s.regions[name] = backend
	return backend, nil
}

func (s *RegionService) stripe(region, id string) *atomic.Uint64 {
	return &s.versions[xxhash.Sum64String(region+KeySeparator+id)%versionStripes]
}

func (s *RegionService) fault(region, op string, err error) {
	s.observer.Fault(region)
	s.logger.Warn("cache backend fault, treating as miss",
		slog.String("region", region),
		slog.String("op", op),
		slog.Any("error", err))
}
