// Package model defines the core domain entities for the image cache.
package model

import (
	"fmt"
	"math"
	"strings"
)

// ImageFormat selects the file extension used when an image is persisted to disk.
// It has no effect on the bytes themselves or on the memory tier.
type ImageFormat string

const (
	// FormatJPEG stores images with the ".jpeg" extension.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG stores images with the ".png" extension.
	FormatPNG ImageFormat = "png"
)

// Extension returns the file extension, including the leading dot.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatPNG:
		return ".png"
	default:
		return ".jpeg"
	}
}

// ParseImageFormat parses "jpeg", "jpg", "png" (optionally dot-prefixed, any case).
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// StorageLocation selects which tier lookups and populates target.
type StorageLocation string

const (
	// LocationMemory keeps images in the bounded in-process cache.
	LocationMemory StorageLocation = "memory"
	// LocationDisk keeps images as files under the cache directory.
	LocationDisk StorageLocation = "disk"
)

// String implements fmt.Stringer.
func (l StorageLocation) String() string {
	return string(l)
}

// ParseStorageLocation parses "memory" or "disk".
func ParseStorageLocation(s string) (StorageLocation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory":
		return LocationMemory, nil
	case "disk", "file", "filemanager":
		return LocationDisk, nil
	}
	return "", fmt.Errorf("unsupported storage location %q", s)
}

// CacheSettings is a point-in-time snapshot of the cache configuration.
type CacheSettings struct {
	Location         StorageLocation `json:"location"`
	RootDir          string          `json:"root_dir"`
	DirectoryName    string          `json:"directory_name"`
	Format           ImageFormat     `json:"image_format"`
	MemoryLimitMB    int             `json:"memory_limit_mb"`
	MemoryCountLimit int             `json:"memory_count_limit"`
	DebugLogging     bool            `json:"debug_logging"`
	SingleFlight     bool            `json:"single_flight"`
}

// MaxMemoryLimitMB is the largest accepted memory tier budget (1 TiB).
const MaxMemoryLimitMB = 1 << 20

// MemoryLimitBytes returns the memory tier byte budget.
func (s CacheSettings) MemoryLimitBytes() int64 {
	return MegabytesToBytes(s.MemoryLimitMB)
}

// MegabytesToBytes converts a MiB count to bytes, saturating at math.MaxInt64
// so an oversized budget never wraps to zero or a negative bound.
func MegabytesToBytes(mb int) int64 {
	if mb <= 0 {
		return 0
	}
	if int64(mb) > math.MaxInt64>>20 {
		return math.MaxInt64
	}
	return int64(mb) << 20
}

// CacheStats summarizes both tiers.
type CacheStats struct {
	Location        StorageLocation `json:"location"`
	MemoryEntries   int             `json:"memory_entries"`
	MemoryBytes     int64           `json:"memory_bytes"`
	MemoryHits      int64           `json:"memory_hits"`
	MemoryMisses    int64           `json:"memory_misses"`
	MemoryEvictions int64           `json:"memory_evictions"`
	DiskFiles       int             `json:"disk_files"`
	DiskBytes       int64           `json:"disk_bytes"`
	DiskBytesHuman  string          `json:"disk_bytes_human"`
}
