package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// Backend stores encoded values for a single region.
// Implementations must be safe for concurrent use. Errors are reported, not
// hidden; the region service decides how to degrade.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// BackendFactory builds the backend for a named region.
type BackendFactory func(region string, cfg Config) (Backend, error)

// sturdycBackend is the in-process backend: a bounded, sharded store with
// per-entry expiry provided by sturdyc. A full shard evicts the entries
// closest to expiry, so eviction order is least recently written; reads do
// not refresh an entry.
type sturdycBackend struct {
	client *sturdyc.Client[[]byte]
}

// NewSturdycBackend creates an in-memory backend for one region.
//
// Capacity, NumShards, TTL, EvictionPercentage are passed to sturdyc.New(),
// other options are applied via ToSturdycOptions().
func NewSturdycBackend(cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycBackend{client: client}, nil
}

// SturdycFactory is the BackendFactory for in-memory regions.
func SturdycFactory(_ string, cfg Config) (Backend, error) {
	return NewSturdycBackend(cfg)
}

func (s *sturdycBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := s.client.Get(key)
	return value, ok, nil
}

// Set overwrites any existing entry and restarts its expiry clock.
func (s *sturdycBackend) Set(_ context.Context, key string, value []byte) error {
	s.client.Set(key, value)
	return nil
}

func (s *sturdycBackend) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

func (s *sturdycBackend) Clear(_ context.Context) error {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	return nil
}
