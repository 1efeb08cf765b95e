// Package cache implements the bounded, TTL-backed result cache keyed by
// (temple, poem_number, question fingerprint, language).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/models"
)

// Cache is a bounded, least-recently-used, TTL-expiring store of
// completed task responses.
type Cache struct {
	lru *lru.LRU[string, *entry]
}

type entry struct {
	value models.CacheEntry
	hits  atomic.Int64
}

// New builds a Cache from cfg.
func New(cfg *config.CacheConfig) *Cache {
	return &Cache{lru: lru.NewLRU[string, *entry](cfg.MaxEntries, nil, cfg.TTL)}
}

// KeyFor builds the composite cache key for a (temple, number, question,
// language) combination. The question is normalized (lowercased, trimmed)
// before hashing so that trivially-different phrasing of the same
// question still hits the cache.
func KeyFor(temple string, number int, question, language string) models.CacheKey {
	normalized := strings.TrimSpace(strings.ToLower(question))
	sum := sha256.Sum256([]byte(normalized))
	return models.CacheKey{
		Temple:       temple,
		Number:       number,
		QuestionHash: hex.EncodeToString(sum[:]),
		Language:     language,
	}
}

// Get returns the cached entry for key, if present and unexpired, and
// increments its hit counter.
func (c *Cache) Get(key models.CacheKey) (models.CacheEntry, bool) {
	e, ok := c.lru.Get(stringKey(key))
	if !ok {
		return models.CacheEntry{}, false
	}
	e.hits.Add(1)
	v := e.value
	v.Hits = e.hits.Load()
	return v, true
}

// Put stores an entry under key, evicting the least-recently-used entry
// if the cache is at capacity.
func (c *Cache) Put(key models.CacheKey, value models.CacheEntry) {
	value.Key = key
	c.lru.Add(stringKey(key), &entry{value: value})
}

// Len returns the current number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func stringKey(k models.CacheKey) string {
	return k.Temple + "|" + strconv.Itoa(k.Number) + "|" + k.QuestionHash + "|" + k.Language
}
