package config

import "time"

// CacheConfig configures the bounded result cache keyed by
// (temple, poem_number, question hash, language).
type CacheConfig struct {
	// MaxEntries bounds the cache size; least-recently-used entries are
	// evicted once exceeded.
	MaxEntries int `yaml:"max_entries" validate:"required,min=1"`

	// TTL is how long a cache entry remains valid after being written.
	TTL time.Duration `yaml:"ttl"`
}

// DefaultCacheConfig returns the built-in cache defaults.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		MaxEntries: 1000,
		TTL:        24 * time.Hour,
	}
}
