package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/models"
)

func TestKeyForNormalizesQuestion(t *testing.T) {
	a := KeyFor("Mazu", 7, "  What about Love?  ", "zh")
	b := KeyFor("Mazu", 7, "what about love?", "zh")
	assert.Equal(t, a, b)
}

func TestPutThenGetHitsAndIncrementsCounter(t *testing.T) {
	c := New(&config.CacheConfig{MaxEntries: 10, TTL: time.Hour})
	key := KeyFor("Mazu", 7, "will it rain", "zh")
	c.Put(key, models.CacheEntry{Response: "yes", Confidence: 0.8})

	entry, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "yes", entry.Response)
	assert.Equal(t, int64(1), entry.Hits)

	_, ok = c.Get(key)
	require.True(t, ok)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := New(&config.CacheConfig{MaxEntries: 10, TTL: time.Hour})
	_, ok := c.Get(KeyFor("Mazu", 1, "q", "zh"))
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := New(&config.CacheConfig{MaxEntries: 1, TTL: time.Hour})
	k1 := KeyFor("Mazu", 1, "q1", "zh")
	k2 := KeyFor("Mazu", 2, "q2", "zh")

	c.Put(k1, models.CacheEntry{Response: "first"})
	c.Put(k2, models.CacheEntry{Response: "second"})

	_, ok := c.Get(k1)
	assert.False(t, ok)
	_, ok = c.Get(k2)
	assert.True(t, ok)
}
