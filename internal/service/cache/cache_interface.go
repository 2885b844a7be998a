// Package cache defines the storage tier abstraction shared by the memory and disk tiers.
package cache

import "github.com/guttosm/pixie-cache/internal/domain/model"

// Tier is one backing store for cached image bytes.
// Implementations must make each individual call safe for concurrent use.
type Tier interface {
	// Location identifies the tier.
	Location() model.StorageLocation
	// Get returns the stored bytes, or false on a miss.
	Get(key string) ([]byte, bool)
	// Put stores data under key, replacing any previous value.
	Put(key string, data []byte) error
}

// Metrics provides memory tier performance metrics.
type Metrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Bytes     int64
	Capacity  int
	ByteLimit int64
}
