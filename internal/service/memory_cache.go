package service

import (
	"sync"
	"sync/atomic"

	"github.com/guttosm/pixie-cache/internal/domain/model"
	"github.com/guttosm/pixie-cache/internal/logger"
	"github.com/guttosm/pixie-cache/internal/metrics"
	"github.com/guttosm/pixie-cache/internal/service/cache"
	"github.com/rs/zerolog"
)

const tierMemory = "memory"

// MemoryCache is the memory tier: a thread-safe LRU cache bounded both by
// entry count and by the total byte length of the stored payloads.
// It implements the cache.Tier interface.
type MemoryCache struct {
	mu         sync.Mutex
	countLimit int
	byteLimit  int64
	bytes      int64
	items      map[string]*memoryEntry
	head       *memoryEntry
	tail       *memoryEntry
	hits       int64
	misses     int64
	evictions  int64
	log        zerolog.Logger
}

// memoryEntry is a node of the LRU list.
type memoryEntry struct {
	key   string
	value []byte
	prev  *memoryEntry
	next  *memoryEntry
}

// NewMemoryCache creates a memory tier holding at most countLimit entries and
// byteLimit bytes. A non-positive limit disables that bound.
func NewMemoryCache(countLimit int, byteLimit int64) *MemoryCache {
	return &MemoryCache{
		countLimit: countLimit,
		byteLimit:  byteLimit,
		items:      make(map[string]*memoryEntry),
		log:        logger.Component(logger.CacheComponent).With().Str("tier", tierMemory).Logger(),
	}
}

// Location implements cache.Tier.
func (c *MemoryCache) Location() model.StorageLocation {
	return model.LocationMemory
}

// Get returns a copy of the cached bytes and marks the entry most recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	entry, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		atomic.AddInt64(&c.misses, 1)
		metrics.RecordCacheOperation(tierMemory, "get", "miss")
		return nil, false
	}
	c.moveToFront(entry)
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	c.mu.Unlock()

	atomic.AddInt64(&c.hits, 1)
	metrics.RecordCacheOperation(tierMemory, "get", "hit")
	return out, true
}

// Put stores a copy of data under key and evicts least recently used entries
// until both limits hold. A payload larger than the byte limit is not stored,
// and any older value under the same key is dropped with it.
func (c *MemoryCache) Put(key string, data []byte) error {
	size := int64(len(data))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.byteLimit > 0 && size > c.byteLimit {
		if entry, ok := c.items[key]; ok {
			c.removeEntry(entry)
		}
		c.publish()
		metrics.RecordCacheOperation(tierMemory, "put", "too_large")
		c.log.Warn().Str("key", key).Int64("size", size).Int64("limit", c.byteLimit).
			Msg("Image exceeds memory cache limit, not cached")
		return nil
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	if entry, ok := c.items[key]; ok {
		c.bytes += size - int64(len(entry.value))
		entry.value = buf
		c.moveToFront(entry)
	} else {
		entry := &memoryEntry{key: key, value: buf}
		c.items[key] = entry
		c.addToFront(entry)
		c.bytes += size
	}

	c.evictToFit()
	c.publish()
	metrics.RecordCacheOperation(tierMemory, "put", "success")
	return nil
}

// SetLimits changes both bounds and evicts immediately if the cache no longer fits.
func (c *MemoryCache) SetLimits(countLimit int, byteLimit int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.countLimit = countLimit
	c.byteLimit = byteLimit
	c.evictToFit()
	c.publish()
}

// Limits returns the current entry count and byte bounds.
func (c *MemoryCache) Limits() (int, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countLimit, c.byteLimit
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Bytes returns the total byte length of the cached payloads.
func (c *MemoryCache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*memoryEntry)
	c.head = nil
	c.tail = nil
	c.bytes = 0
	c.publish()
	metrics.RecordCacheOperation(tierMemory, "clear", "success")
}

// Metrics returns current cache performance metrics.
func (c *MemoryCache) Metrics() cache.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return cache.Metrics{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      len(c.items),
		Bytes:     c.bytes,
		Capacity:  c.countLimit,
		ByteLimit: c.byteLimit,
	}
}

func (c *MemoryCache) overLimit() bool {
	if c.countLimit > 0 && len(c.items) > c.countLimit {
		return true
	}
	return c.byteLimit > 0 && c.bytes > c.byteLimit
}

// evictToFit drops entries from the tail of the LRU list until both limits hold.
func (c *MemoryCache) evictToFit() {
	for c.overLimit() && c.tail != nil {
		c.removeEntry(c.tail)
		atomic.AddInt64(&c.evictions, 1)
		metrics.RecordCacheOperation(tierMemory, "evict", "capacity")
	}
}

func (c *MemoryCache) publish() {
	metrics.UpdateMemoryCacheMetrics(len(c.items), c.bytes)
}

// removeEntry removes an entry from both the map and the linked list.
func (c *MemoryCache) removeEntry(entry *memoryEntry) {
	delete(c.items, entry.key)
	c.remove(entry)
	c.bytes -= int64(len(entry.value))
}

// moveToFront moves an existing entry to the front of the LRU list.
func (c *MemoryCache) moveToFront(entry *memoryEntry) {
	if entry == c.head {
		return
	}
	c.remove(entry)
	c.addToFront(entry)
}

// addToFront adds an entry to the front of the LRU list.
func (c *MemoryCache) addToFront(entry *memoryEntry) {
	entry.prev = nil
	entry.next = c.head
	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry
	if c.tail == nil {
		c.tail = entry
	}
}

// remove unlinks an entry without touching the map.
func (c *MemoryCache) remove(entry *memoryEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
	entry.prev = nil
	entry.next = nil
}
