package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// CachedResponse represents a cached reply
type CachedResponse struct {
	Response  string
	Timestamp time.Time
}

// GenerateCacheKey generates a cache key from a normalized message
func GenerateCacheKey(message string) string {
	h := sha256.New()
	h.Write([]byte(message))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Cache stores replies by key. A zero TTL keeps entries forever.
type Cache struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache with the given TTL
func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns a cached reply if one is present and fresh
func (c *Cache) Get(key string) (string, bool) {
	val, ok := c.entries.Load(key)
	if !ok {
		return "", false
	}
	cached := val.(CachedResponse)
	if c.ttl > 0 && c.now().Sub(cached.Timestamp) > c.ttl {
		c.entries.Delete(key)
		return "", false
	}
	return cached.Response, true
}

// Store records a reply under key
func (c *Cache) Store(key, response string) {
	c.entries.Store(key, CachedResponse{
		Response:  response,
		Timestamp: c.now(),
	})
}
