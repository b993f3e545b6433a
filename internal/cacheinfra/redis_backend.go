package cacheinfra

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// KeySeparator defines the delimiter used between redis key segments.
const KeySeparator = "::"

// RedisConfig configures the shared redis backend.
type RedisConfig struct {
	// Namespace prefixes every key so several catalogs can share one server.
	Namespace string

	// OperationTimeout bounds each redis round trip.
	OperationTimeout time.Duration

	// ScanCount is the COUNT hint used when clearing a region.
	ScanCount int64

	// Breaker trips after this ratio of failed operations ...
	BreakerFailureRatio float64
	// ... once at least this many operations were seen in the interval.
	BreakerMinRequests uint32
	// BreakerOpenTimeout is how long the breaker stays open before probing again.
	BreakerOpenTimeout time.Duration
}

// DefaultRedisConfig returns the defaults used when no overrides are given.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Namespace:           "catalog",
		OperationTimeout:    100 * time.Millisecond,
		ScanCount:           100,
		BreakerFailureRatio: 0.5,
		BreakerMinRequests:  5,
		BreakerOpenTimeout:  30 * time.Second,
	}
}

// redisBackend keeps one region in redis. Capacity is bounded by the
// server's maxmemory policy; TTL is applied per key.
type redisBackend struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	cfg     RedisConfig
	breaker *gobreaker.CircuitBreaker
}

// NewRedisFactory returns a BackendFactory placing every region on client.
// All regions share one circuit breaker: when redis is unhealthy every
// operation fails fast and callers fall through to the store.
func NewRedisFactory(client redis.UniversalClient, cfg RedisConfig, logger *slog.Logger) BackendFactory {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache-redis",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return func(region string, regionCfg Config) (Backend, error) {
		if client == nil {
			return nil, &ConfigError{Field: "Redis", Message: "client is required"}
		}
		if regionCfg.TTL <= 0 {
			return nil, &ConfigError{Field: "TTL", Message: "must be greater than 0"}
		}
		return &redisBackend{
			client:  client,
			prefix:  cfg.Namespace + KeySeparator + region + KeySeparator,
			ttl:     regionCfg.TTL,
			cfg:     cfg,
			breaker: breaker,
		}, nil
	}
}

func (r *redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := r.do(ctx, func(ctx context.Context) (any, error) {
		value, err := r.client.Get(ctx, r.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return value, err
	})
	if err != nil {
		return nil, false, err
	}
	value, _ := res.([]byte)
	if value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

func (r *redisBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.do(ctx, func(ctx context.Context) (any, error) {
		return nil, r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
	})
	return err
}

func (r *redisBackend) Delete(ctx context.Context, key string) error {
	_, err := r.do(ctx, func(ctx context.Context) (any, error) {
		return nil, r.client.Del(ctx, r.prefix+key).Err()
	})
	return err
}

// Clear removes every key of the region using SCAN, so it never blocks the server.
func (r *redisBackend) Clear(ctx context.Context) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", r.cfg.ScanCount).Iterator()
	for iter.Next(ctx) {
		if strings.HasPrefix(iter.Val(), r.prefix) {
			keys = append(keys, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisBackend) do(ctx context.Context, op func(ctx context.Context) (any, error)) (any, error) {
	return r.breaker.Execute(func() (any, error) {
		if r.cfg.OperationTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.cfg.OperationTimeout)
			defer cancel()
		}
		return op(ctx)
	})
}
