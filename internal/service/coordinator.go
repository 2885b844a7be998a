package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5"
	"github.com/guttosm/pixie-cache/internal/domain/model"
	"github.com/guttosm/pixie-cache/internal/logger"
	"github.com/guttosm/pixie-cache/internal/metrics"
	"github.com/guttosm/pixie-cache/internal/repository"
	"github.com/guttosm/pixie-cache/internal/service/cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultSettings returns the configuration a fresh coordinator starts from.
func DefaultSettings() model.CacheSettings {
	return model.CacheSettings{
		Location:         model.LocationDisk,
		DirectoryName:    "PixieImageCache",
		Format:           model.FormatJPEG,
		MemoryLimitMB:    50,
		MemoryCountLimit: 50,
		DebugLogging:     true,
		SingleFlight:     true,
	}
}

// Coordinator owns the cache configuration and both tiers, and implements the
// read-through algorithm used by entry controllers.
//
// Lookups and populates are dispatched to the active tier; the disk tier keeps
// its files when the memory tier is selected, and vice versa.
type Coordinator struct {
	mu       sync.RWMutex
	settings model.CacheSettings
	active   cache.Tier

	memory  *MemoryCache
	disk    *repository.BlobStore
	fetcher Fetcher
	log     zerolog.Logger

	flightMu sync.Mutex
	flights  singleflight.Group
	inflight map[string]*flight
}

// flight is a shared fetch and the number of controllers waiting on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewCoordinator creates a coordinator over fsys (the cache root) using settings.
// When the disk tier is selected its directory is created eagerly.
func NewCoordinator(fsys billy.Filesystem, fetcher Fetcher, settings model.CacheSettings) *Coordinator {
	c := &Coordinator{
		settings: settings,
		memory:   NewMemoryCache(settings.MemoryCountLimit, settings.MemoryLimitBytes()),
		disk:     repository.NewBlobStore(fsys, settings.DirectoryName, settings.Format),
		fetcher:  fetcher,
		log:      logger.Component(logger.CacheComponent),
		inflight: make(map[string]*flight),
	}
	c.active = c.tierFor(settings.Location)
	if settings.Location == model.LocationDisk {
		_ = c.disk.EnsureDirectory()
	}
	return c
}

func (c *Coordinator) tierFor(location model.StorageLocation) cache.Tier {
	if location == model.LocationMemory {
		return c.memory
	}
	return c.disk
}

// info returns an informational log event, or nil when debug logging is off.
// zerolog events are nil-safe, so callers chain on the result unconditionally.
func (c *Coordinator) info() *zerolog.Event {
	c.mu.RLock()
	enabled := c.settings.DebugLogging
	c.mu.RUnlock()
	if !enabled {
		return nil
	}
	return c.log.Info()
}

// ConfigureForDisk selects the disk tier with the given directory and file format,
// creating the directory if needed.
func (c *Coordinator) ConfigureForDisk(directoryName string, format model.ImageFormat) error {
	if err := repository.ValidateKey(directoryName); err != nil {
		return fmt.Errorf("invalid directory name: %w", err)
	}

	c.mu.Lock()
	c.settings.Location = model.LocationDisk
	c.settings.DirectoryName = directoryName
	c.settings.Format = format
	c.disk.Configure(directoryName, format)
	c.active = c.disk
	c.mu.Unlock()

	if err := c.disk.EnsureDirectory(); err != nil {
		return err
	}
	c.info().Str("dir", directoryName).Str("format", string(format)).
		Msg("File-based image caching configured")
	return nil
}

// ConfigureForMemory selects the memory tier with a byte budget of limitMB MiB.
// Entries already on disk are left in place.
func (c *Coordinator) ConfigureForMemory(limitMB int) {
	c.mu.Lock()
	c.settings.Location = model.LocationMemory
	c.settings.MemoryLimitMB = limitMB
	count := c.settings.MemoryCountLimit
	limit := c.settings.MemoryLimitBytes()
	c.active = c.memory
	c.mu.Unlock()

	c.memory.SetLimits(count, limit)
	c.info().Int("limit_mb", limitMB).Msg("Memory image caching configured")
}

// SetMemoryCountLimit changes the maximum number of memory tier entries.
func (c *Coordinator) SetMemoryCountLimit(n int) {
	c.mu.Lock()
	c.settings.MemoryCountLimit = n
	limit := c.settings.MemoryLimitBytes()
	c.mu.Unlock()

	c.memory.SetLimits(n, limit)
	c.info().Int("count_limit", n).Msg("Memory cache count limit updated")
}

// SetDebugLogging toggles informational cache diagnostics.
// Warnings and errors are always logged.
func (c *Coordinator) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	c.settings.DebugLogging = enabled
	c.mu.Unlock()
}

// DisableDebugLogging turns informational cache diagnostics off.
func (c *Coordinator) DisableDebugLogging() {
	c.SetDebugLogging(false)
}

// Settings returns a snapshot of the current configuration.
func (c *Coordinator) Settings() model.CacheSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func (c *Coordinator) activeTier() cache.Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Lookup reads key from the active tier. Invalid keys always miss.
func (c *Coordinator) Lookup(key string) ([]byte, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}
	tier := c.activeTier()
	data, ok := tier.Get(key)
	if ok {
		c.info().Str("key", key).Str("tier", tier.Location().String()).Msg("Image retrieved from cache")
	}
	return data, ok
}

// Populate writes data under key to the active tier. Failures are logged and absorbed.
func (c *Coordinator) Populate(key string, data []byte) {
	if err := ValidateKey(key); err != nil {
		c.log.Warn().Err(err).Msg("Image not cached")
		return
	}
	tier := c.activeTier()
	if err := tier.Put(key, data); err != nil {
		c.log.Error().Err(err).Str("key", key).Str("tier", tier.Location().String()).
			Msg("Failed to cache image")
		return
	}
	c.info().Str("key", key).Str("tier", tier.Location().String()).Int("size", len(data)).
		Msg("Image cached")
}

// ClearAll removes every entry of the disk tier and returns how many were removed.
// The memory tier is not affected.
func (c *Coordinator) ClearAll() int {
	removed, err := c.disk.Clear()
	if err != nil {
		c.log.Error().Err(err).Int("removed", removed).Msg("Cache directory cleared with errors")
		return removed
	}
	c.info().Int("removed", removed).Msg("Cache directory cleared")
	return removed
}

// DirectorySizeBytes reports the total size of the disk tier directory.
func (c *Coordinator) DirectorySizeBytes() int64 {
	return c.disk.SizeBytes()
}

// DirectoryReady reports whether the disk tier directory exists.
func (c *Coordinator) DirectoryReady() bool {
	return c.disk.DirectoryExists()
}

// Stats summarizes both tiers.
func (c *Coordinator) Stats() model.CacheStats {
	m := c.memory.Metrics()
	size := c.disk.SizeBytes()
	return model.CacheStats{
		Location:        c.Settings().Location,
		MemoryEntries:   m.Size,
		MemoryBytes:     m.Bytes,
		MemoryHits:      m.Hits,
		MemoryMisses:    m.Misses,
		MemoryEvictions: m.Evictions,
		DiskFiles:       c.disk.Len(),
		DiskBytes:       size,
		DiskBytesHuman:  humanize.IBytes(uint64(size)),
	}
}

// Load starts a read-through lookup for key. On a cache hit the returned
// controller is already loaded; otherwise it fetches url in the background.
func (c *Coordinator) Load(ctx context.Context, url, key string, opts ...ControllerOption) *EntryController {
	return newEntryController(ctx, c, url, key, opts...)
}

// fetchAndPopulate downloads url and stores the result under key.
func (c *Coordinator) fetchAndPopulate(ctx context.Context, url, key string) ([]byte, error) {
	if !c.Settings().SingleFlight {
		return c.fetchOnce(ctx, url, key)
	}

	f, ch := c.joinFlight(ctx, url, key)
	defer c.leaveFlight(key, f)

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RecordSharedFetch()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return bytes.Clone(res.Val.([]byte)), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	}
}

// joinFlight registers a waiter for key, starting the shared fetch if none is running.
// The shared context is detached from the caller so one waiter leaving does not
// fail the rest; it keeps the caller's values such as the request id.
func (c *Coordinator) joinFlight(ctx context.Context, url, key string) (*flight, <-chan singleflight.Result) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	f, ok := c.inflight[key]
	if !ok {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: shared, cancel: cancel}
		c.inflight[key] = f
	}
	f.waiters++

	ch := c.flights.DoChan(key, func() (interface{}, error) {
		return c.fetchOnce(f.ctx, url, key)
	})
	return f, ch
}

// leaveFlight drops a waiter. The last one out cancels the shared fetch and
// forgets it, so the next controller for key starts a fresh fetch.
func (c *Coordinator) leaveFlight(key string, f *flight) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	if c.inflight[key] == f {
		delete(c.inflight, key)
		c.flights.Forget(key)
	}
	f.cancel()
}

func (c *Coordinator) fetchOnce(ctx context.Context, url, key string) ([]byte, error) {
	c.info().Ctx(ctx).Str("key", key).Str("url", url).Msg("Fetching image")
	data, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Str("key", key).Str("url", url).Msg("Failed to fetch image")
		return nil, err
	}
	c.Populate(key, data)
	return data, nil
}
