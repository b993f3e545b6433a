package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the region cache.
// Every region gets its own bounded store built from these values unless a
// RegionConfig override exists for it.
type Config struct {
	// Capacity defines the maximum number of entries each region can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards per region.
	// Capacity is split evenly across shards. Must be greater than 0.
	NumShards int

	// TTL is the time-to-live for cached entries. After this duration an
	// entry is treated as absent regardless of residency.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of a full shard to evict
	// before admitting a new entry. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	// Regions overrides Capacity and TTL per region name.
	Regions map[string]RegionConfig
}

// RegionConfig overrides the bounds for a single region.
// Zero fields fall back to the top level Config.
type RegionConfig struct {
	Capacity int
	TTL      time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           1000,
		NumShards:          16,
		TTL:                time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ForRegion resolves the effective capacity and TTL for a region.
func (c Config) ForRegion(name string) Config {
	out := c
	out.Regions = nil
	if override, ok := c.Regions[name]; ok {
		if override.Capacity > 0 {
			out.Capacity = override.Capacity
		}
		if override.TTL > 0 {
			out.TTL = override.TTL
		}
	}
	if out.NumShards > out.Capacity {
		out.NumShards = out.Capacity
	}
	return out
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	for name, region := range c.Regions {
		if region.Capacity < 0 {
			return &ConfigError{Field: "Regions." + name + ".Capacity", Message: "must be non-negative"}
		}
		if region.TTL < 0 {
			return &ConfigError{Field: "Regions." + name + ".TTL", Message: "must be non-negative"}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
