package di

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/goliatone/go-article-catalog/cache"
	"github.com/goliatone/go-article-catalog/catalog"
	"github.com/goliatone/go-article-catalog/internal/config"
	"github.com/goliatone/go-article-catalog/internal/logging"
	"github.com/goliatone/go-article-catalog/internal/metrics"
	"github.com/goliatone/go-article-catalog/repositorycache"
	"github.com/goliatone/go-article-catalog/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Container wires the catalog service to its store, cache and ambient stack.
// It owns the database handle and the optional Redis client and releases both
// on Close.
type Container struct {
	config       config.Config
	logger       *slog.Logger
	db           *bun.DB
	redis        redis.UniversalClient
	metrics      *metrics.CacheMetrics
	cacheService cache.CacheService
	catalog      *catalog.Service
}

// Option customises NewContainer.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	redisClient    redis.UniversalClient
}

// WithLogger overrides the logger built from LOG_LEVEL and LOG_FORMAT.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the cache metrics with reg instead of leaving them unregistered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTracerProvider sets the tracer provider used by the catalog service.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithRedisClient provides a ready client for the redis cache backend.
// Without it a client is built from REDIS_URL.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) { o.redisClient = client }
}

// NewContainer opens the store, creates the schema if needed, builds the
// region cache and returns the wired catalog service.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	}

	c := &Container{config: cfg, logger: o.logger}

	db, err := store.Open(cfg.StoreConfig(), o.logger)
	if err != nil {
		return nil, err
	}
	c.db = db
	if err := store.CreateSchema(ctx, db); err != nil {
		c.Close()
		return nil, fmt.Errorf("di: create schema: %w", err)
	}

	c.metrics = metrics.NewCacheMetrics(o.registerer)
	cacheOpts := []cache.Option{
		cache.WithLogger(o.logger),
		cache.WithObserver(c.metrics),
	}
	if cfg.CacheBackend == cache.BackendRedis {
		client := o.redisClient
		if client == nil {
			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("di: parse REDIS_URL: %w", err)
			}
			client = redis.NewClient(redisOpts)
			c.redis = client
		}
		cacheOpts = append(cacheOpts, cache.WithRedisClient(client))
	}

	c.cacheService, err = cache.NewCacheService(cfg.CacheConfig(), cacheOpts...)
	if err != nil {
		c.Close()
		return nil, err
	}

	catalogOpts := []catalog.Option{catalog.WithLogger(o.logger)}
	if o.tracerProvider != nil {
		catalogOpts = append(catalogOpts, catalog.WithTracerProvider(o.tracerProvider))
	}
	c.catalog = catalog.New(
		repositorycache.NewArticles(store.NewArticleStore(db), c.cacheService),
		repositorycache.NewAuthors(store.NewAuthorStore(db), c.cacheService),
		repositorycache.NewKeywords(store.NewKeywordStore(db), c.cacheService),
		catalogOpts...,
	)

	o.logger.Info("catalog ready",
		"driver", cfg.DBDriver,
		"cache_backend", cfg.CacheBackend,
		"cache_capacity", cfg.CacheCapacity,
		"cache_ttl", cfg.CacheTTL,
	)
	return c, nil
}

// NewContainerFromEnv loads the configuration from the environment and builds a Container.
func NewContainerFromEnv(ctx context.Context, opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(ctx, *cfg, opts...)
}

// Catalog returns the catalog service.
func (c *Container) Catalog() *catalog.Service {
	return c.catalog
}

// CacheService returns the region cache shared by the repository decorators.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// Metrics returns the cache outcome counters.
func (c *Container) Metrics() *metrics.CacheMetrics {
	return c.metrics
}

// DB returns the underlying database handle.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Logger returns the container logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// ClearCache drops every cached entry. The store is untouched.
func (c *Container) ClearCache(ctx context.Context) error {
	return c.cacheService.Clear(ctx)
}

// Close releases the database handle and the Redis client created by the container.
func (c *Container) Close() error {
	var firstErr error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			firstErr = err
		}
		c.redis = nil
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.db = nil
	}
	return firstErr
}
