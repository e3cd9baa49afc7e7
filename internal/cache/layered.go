package cache

import "time"

// LayeredCache checks memory before disk and promotes disk hits
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get retrieves an entry (memory first, then disk)
func (c *LayeredCache) Get(key string) (*Entry, bool) {
	if e, found := c.memory.Get(key); found {
		return e, true
	}
	if e, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, e, 0)
		return e, true
	}
	return nil, false
}

// Set stores an entry in both layers; the memory layer keeps its own TTL
func (c *LayeredCache) Set(key string, e *Entry, ttl time.Duration) error {
	if err := c.memory.Set(key, e, 0); err != nil {
		return err
	}
	return c.disk.Set(key, e, ttl)
}

// Delete removes an entry from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
