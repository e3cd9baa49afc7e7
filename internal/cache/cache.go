// Package cache keeps fetched source documents so repeated runs do not hit
// the publisher again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/lawparse/internal/model"
)

// Entry is a cached source document.
type Entry struct {
	Source      string    `json:"source"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Cache stores entries by key. A zero ttl selects the implementation default.
type Cache interface {
	Get(key string) (*Entry, bool)
	Set(key string, e *Entry, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a source URL or path
func Key(source string) string {
	hash := sha256.Sum256([]byte(source))
	return "lawparse:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg: memory in front of disk, or a no-op
// cache when caching is disabled.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Noop{}
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// Noop is a cache that never stores anything.
type Noop struct{}

func (Noop) Get(string) (*Entry, bool) { return nil, false }
func (Noop) Set(string, *Entry, time.Duration) error { return nil }
func (Noop) Delete(string) error { return nil }
func (Noop) Clear() error { return nil }
