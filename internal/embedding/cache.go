package embedding

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hyperjump/kotoba/internal/models"
)

// DefaultCacheSize is the default number of cached embedding results.
const DefaultCacheSize = 100

// CacheKey returns the cache key for text detected as lang. The same text detected under two
// languages is cached twice.
func CacheKey(lang, text string) string {
	return lang + ":" + text
}

// EmbeddingCache is a bounded LRU cache of embedding results. Values are copied on the way in
// and out so callers never share a vector with the cache.
type EmbeddingCache struct {
	lru     *lru.Cache[string, models.EmbeddingResult]
	metrics *Metrics
}

// NewEmbeddingCache creates a cache with the given capacity (DefaultCacheSize when <= 0).
// metrics may be nil.
func NewEmbeddingCache(capacity int, metrics *Metrics) *EmbeddingCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	c := &EmbeddingCache{metrics: metrics}
	// NewWithEvict only fails for a non-positive size.
	c.lru, _ = lru.NewWithEvict[string, models.EmbeddingResult](capacity, func(string, models.EmbeddingResult) {
		if c.metrics != nil {
			c.metrics.CacheEvictions.Inc()
		}
	})
	return c
}

// Get returns a copy of the cached result for key and marks it most recently used.
func (c *EmbeddingCache) Get(key string) (models.EmbeddingResult, bool) {
	res, ok := c.lru.Get(key)
	if c.metrics != nil {
		if ok {
			c.metrics.CacheHits.Inc()
		} else {
			c.metrics.CacheMisses.Inc()
		}
	}
	if !ok {
		return models.EmbeddingResult{}, false
	}
	return res.Clone(), true
}

// Set stores a copy of res under key, evicting the least recently used entry if the cache is
// full and key is new.
func (c *EmbeddingCache) Set(key string, res models.EmbeddingResult) {
	c.lru.Add(key, res.Clone())
	c.updateSize()
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	return c.lru.Len()
}

// Purge removes every entry.
func (c *EmbeddingCache) Purge() {
	c.lru.Purge()
	c.updateSize()
}

func (c *EmbeddingCache) updateSize() {
	if c.metrics != nil {
		c.metrics.CacheEntries.Set(float64(c.lru.Len()))
	}
}
