/*
Package config loads the catalog runtime configuration from the environment.

It maps environment variables onto a typed struct with caarlos0/env and
converts the result into the store and cache configurations.

Usage:

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	cacheCfg := cfg.CacheConfig()
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-article-catalog/cache"
	"github.com/goliatone/go-article-catalog/store"
)

// Config holds all runtime configuration for the catalog.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Relational store
	DBDriver          string        `env:"DB_DRIVER"            envDefault:"sqlite3"`
	DBDSN             string        `env:"DB_DSN"               envDefault:"file:catalog?mode=memory&cache=shared&_foreign_keys=on"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"    envDefault:"1"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"    envDefault:"1"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"0s"`
	DBLogQueries      bool          `env:"DB_LOG_QUERIES"       envDefault:"false"`

	// Read cache
	CacheBackend            string        `env:"CACHE_BACKEND"             envDefault:"memory"`
	CacheCapacity           int           `env:"CACHE_CAPACITY"            envDefault:"1000"`
	CacheShards             int           `env:"CACHE_SHARDS"              envDefault:"16"`
	CacheTTL                time.Duration `env:"CACHE_TTL"                 envDefault:"1h"`
	CacheEvictionPercentage int           `env:"CACHE_EVICTION_PERCENTAGE" envDefault:"10"`
	CacheEvictionInterval   time.Duration `env:"CACHE_EVICTION_INTERVAL"   envDefault:"0s"`
	// Per-region overrides, e.g. CACHE_REGION_CAPACITY="article:5000,author:200".
	CacheRegionCapacity map[string]int           `env:"CACHE_REGION_CAPACITY"`
	CacheRegionTTL      map[string]time.Duration `env:"CACHE_REGION_TTL"`

	// Shared cache backend (Redis)
	RedisURL              string        `env:"REDIS_URL"`
	RedisNamespace        string        `env:"REDIS_NAMESPACE"         envDefault:"catalog"`
	RedisOperationTimeout time.Duration `env:"REDIS_OPERATION_TIMEOUT" envDefault:"50ms"`
}

// Load parses environment variables into a Config and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be checked by the parser alone.
func (c *Config) Validate() error {
	if c.CacheBackend == cache.BackendRedis && c.RedisURL == "" {
		return fmt.Errorf("config: REDIS_URL is required when CACHE_BACKEND=redis")
	}
	if err := c.CacheConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.DBDriver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

// StoreConfig returns the relational store settings.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver:          c.DBDriver,
		DSN:             c.DBDSN,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		LogQueries:      c.DBLogQueries,
	}
}

// CacheConfig returns the read cache settings, region overrides included.
func (c *Config) CacheConfig() cache.Config {
	cfg := cache.Config{
		Backend:            c.CacheBackend,
		Capacity:           c.CacheCapacity,
		NumShards:          c.CacheShards,
		TTL:                c.CacheTTL,
		EvictionPercentage: c.CacheEvictionPercentage,
		EvictionInterval:   c.CacheEvictionInterval,
	}

	if len(c.CacheRegionCapacity) > 0 || len(c.CacheRegionTTL) > 0 {
		cfg.Regions = make(map[string]cache.RegionConfig)
		for name, capacity := range c.CacheRegionCapacity {
			r := cfg.Regions[name]
			r.Capacity = capacity
			cfg.Regions[name] = r
		}
		for name, ttl := range c.CacheRegionTTL {
			r := cfg.Regions[name]
			r.TTL = ttl
			cfg.Regions[name] = r
		}
	}

	if c.CacheBackend == cache.BackendRedis {
		cfg.Redis = &cache.RedisConfig{
			Namespace:        c.RedisNamespace,
			OperationTimeout: c.RedisOperationTimeout,
		}
	}
	return cfg
}
