package cache

import (
	"errors"
	"time"
)

// LayeredCache puts a fast front cache over a durable back cache, so a
// restarted process can still recover from the last envelope on disk
type LayeredCache struct {
	front      Cache
	back       Cache
	promoteTTL time.Duration
}

// NewLayeredCache stacks a memory cache over a disk cache in dir
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		front:      NewMemoryCache(memoryTTL, 10*time.Minute),
		back:       NewDiskCache(diskDir, diskTTL),
		promoteTTL: memoryTTL,
	}
}

// NewLayeredCacheFrom stacks two arbitrary caches. Promoted entries use
// the front cache's default TTL.
func NewLayeredCacheFrom(front, back Cache) *LayeredCache {
	return &LayeredCache{front: front, back: back}
}

// Get checks the front first, then the back, copying back hits forward
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.front.Get(key); found {
		return val, true
	}

	val, found := c.back.Get(key)
	if !found {
		return nil, false
	}
	// A failed promotion only costs a slower next read
	_ = c.front.Set(key, val, c.promoteTTL)
	return val, true
}

// Set writes the back layer first; the front is only updated once the
// durable copy exists
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.back.Set(key, value, ttl); err != nil {
		return err
	}
	return c.front.Set(key, value, ttl)
}

// Delete removes key from both layers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.front.Delete(key), c.back.Delete(key))
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.front.Clear(), c.back.Clear())
}
