package cache

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a cache key from the conversion direction and the
// source document bytes
func CacheKey(direction string, data []byte) string {
	h := blake3.New()
	_, _ = h.Write([]byte(direction))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(data)
	return "iocwriter:v1:" + hex.EncodeToString(h.Sum(nil))
}

// NopCache never stores anything; it stands in when caching is disabled
type NopCache struct{}

// Get always misses
func (NopCache) Get(string) ([]byte, bool) { return nil, false }

// Set discards the value
func (NopCache) Set(string, []byte, time.Duration) error { return nil }

// Delete is a no-op
func (NopCache) Delete(string) error { return nil }

// Clear is a no-op
func (NopCache) Clear() error { return nil }
