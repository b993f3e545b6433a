package cache

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-article-catalog/internal/cacheinfra"
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config exposes cache configuration options for consumers of the cache package.
// Capacity and TTL bound every region and can be overridden per region.
type Config struct {
	Backend            string
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
	Regions            map[string]RegionConfig
	Redis              *RedisConfig
}

// RegionConfig overrides Capacity and TTL for one region. Zero values inherit.
type RegionConfig struct {
	Capacity int
	TTL      time.Duration
}

// RedisConfig mirrors the redis backend options.
type RedisConfig struct {
	Namespace           string
	OperationTimeout    time.Duration
	BreakerFailureRatio float64
	BreakerMinRequests  uint32
	BreakerOpenTimeout  time.Duration
}

// Observer receives per-region cache outcomes (see internal/metrics).
type Observer interface {
	Hit(region string)
	Miss(region string)
	Fault(region string)
	Invalidated(region string)
}

// Option customises NewCacheService.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	observer    Observer
	redisClient redis.UniversalClient
}

// WithLogger sets the logger used to report degraded cache operations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver sets the outcome observer, typically *metrics.CacheMetrics.
func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithRedisClient provides the client used when Backend is BackendRedis.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) { o.redisClient = client }
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendMemory, BackendRedis:
	default:
		return &cacheinfra.ConfigError{Field: "Backend", Message: "must be memory or redis"}
	}
	return c.toInternal().Validate()
}

// NewCacheService constructs the region cache using the provided configuration.
func NewCacheService(cfg Config, opts ...Option) (CacheService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	factory := cacheinfra.SturdycFactory
	if cfg.Backend == BackendRedis {
		if o.redisClient == nil {
			return nil, &cacheinfra.ConfigError{Field: "Redis", Message: "client is required for the redis backend"}
		}
		factory = cacheinfra.NewRedisFactory(o.redisClient, cfg.redisToInternal(), o.logger)
	}

	var observer cacheinfra.Observer
	if o.observer != nil {
		observer = o.observer
	}
	return cacheinfra.NewRegionService(cfg.toInternal(), factory, o.logger, observer)
}

func (c Config) toInternal() cacheinfra.Config {
	var regions map[string]cacheinfra.RegionConfig
	if len(c.Regions) > 0 {
		regions = make(map[string]cacheinfra.RegionConfig, len(c.Regions))
		for name, r := range c.Regions {
			regions[name] = cacheinfra.RegionConfig{Capacity: r.Capacity, TTL: r.TTL}
		}
	}

	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		Regions:            regions,
	}
}

func (c Config) redisToInternal() cacheinfra.RedisConfig {
	out := cacheinfra.DefaultRedisConfig()
	if c.Redis == nil {
		return out
	}
	if c.Redis.Namespace != "" {
		out.Namespace = c.Redis.Namespace
	}
	if c.Redis.OperationTimeout > 0 {
		out.OperationTimeout = c.Redis.OperationTimeout
	}
	if c.Redis.BreakerFailureRatio > 0 {
		out.BreakerFailureRatio = c.Redis.BreakerFailureRatio
	}
	if c.Redis.BreakerMinRequests > 0 {
		out.BreakerMinRequests = c.Redis.BreakerMinRequests
	}
	if c.Redis.BreakerOpenTimeout > 0 {
		out.BreakerOpenTimeout = c.Redis.BreakerOpenTimeout
	}
	return out
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var regions map[string]RegionConfig
	if len(cfg.Regions) > 0 {
		regions = make(map[string]RegionConfig, len(cfg.Regions))
		for name, r := range cfg.Regions {
			regions[name] = RegionConfig{Capacity: r.Capacity, TTL: r.TTL}
		}
	}

	return Config{
		Backend:            BackendMemory,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		Regions:            regions,
	}
}
