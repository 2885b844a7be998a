package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/guttosm/pixie-cache/internal/domain/model"
	"github.com/guttosm/pixie-cache/internal/logger"
	"github.com/guttosm/pixie-cache/internal/metrics"
	"github.com/rs/zerolog"
)

var (
	// ErrStorageWrite is returned when a blob could not be persisted.
	ErrStorageWrite = errors.New("cache storage write failed")
	// ErrStorageRead is returned when an existing blob could not be read.
	ErrStorageRead = errors.New("cache storage read failed")
	// ErrInvalidKey is returned for keys that cannot be used as a file name.
	ErrInvalidKey = errors.New("invalid cache key")
)

const tierDisk = "disk"

// ValidateKey checks that key is non-empty and usable as a single file name.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	case key == "." || key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}
	return nil
}

// BlobStore is the disk tier: one file per key, named <key><extension>,
// directly inside a single cache directory on a billy filesystem.
//
// Every operation holds the store lock, so a Clear never observes a half
// written file and two Puts for the same key never interleave.
type BlobStore struct {
	fs  billy.Filesystem
	dir string
	ext string
	mu  sync.RWMutex
	log zerolog.Logger
}

// NewBlobStore creates a disk tier rooted at dir on fsys.
// The directory is not created until EnsureDirectory is called.
func NewBlobStore(fsys billy.Filesystem, dir string, format model.ImageFormat) *BlobStore {
	return &BlobStore{
		fs:  fsys,
		dir: dir,
		ext: format.Extension(),
		log: logger.Component(logger.CacheComponent).With().Str("tier", tierDisk).Logger(),
	}
}

// Location implements cache.Tier.
func (s *BlobStore) Location() model.StorageLocation {
	return model.LocationDisk
}

// Configure points the store at a different directory and extension.
// Files written under the previous settings are left untouched.
func (s *BlobStore) Configure(dir string, format model.ImageFormat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dir = dir
	s.ext = format.Extension()
}

// Dir returns the cache directory path relative to the filesystem root.
func (s *BlobStore) Dir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// EnsureDirectory creates the cache directory if it is absent.
// Failures are logged and returned; callers may ignore them, since
// later writes simply fail and reads miss.
func (s *BlobStore) EnsureDirectory() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Error().Err(err).Str("dir", s.dir).Msg("Failed to create cache directory")
		return fmt.Errorf("%w: create directory %s: %v", ErrStorageWrite, s.dir, err)
	}
	return nil
}

// DirectoryExists reports whether the cache directory is present.
func (s *BlobStore) DirectoryExists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := s.fs.Stat(s.dir)
	return err == nil && info.IsDir()
}

func (s *BlobStore) path(key string) string {
	return s.fs.Join(s.dir, key+s.ext)
}

// Put writes data to <dir>/<key><ext>, replacing any existing file.
// The bytes go to a temporary file first and are renamed into place.
func (s *BlobStore) Put(key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		metrics.RecordCacheOperation(tierDisk, "put", "invalid_key")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if info, err := s.fs.Stat(s.dir); err != nil || !info.IsDir() {
		metrics.RecordCacheOperation(tierDisk, "put", "error")
		s.log.Error().Str("key", key).Str("dir", s.dir).Msg("Failed to append image, cache directory is missing")
		return fmt.Errorf("%w: directory %s is missing", ErrStorageWrite, s.dir)
	}

	target := s.path(key)
	if err := s.writeAtomic(target, data); err != nil {
		metrics.RecordCacheOperation(tierDisk, "put", "error")
		s.log.Error().Err(err).Str("key", key).Str("path", target).Msg("Failed to append image")
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	metrics.RecordCacheOperation(tierDisk, "put", "success")
	return nil
}

func (s *BlobStore) writeAtomic(target string, data []byte) error {
	tmp := target + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

// Get returns the contents of <dir>/<key><ext>. A missing file is a miss,
// and so is any read error (which is logged).
func (s *BlobStore) Get(key string) ([]byte, bool) {
	if err := ValidateKey(key); err != nil {
		metrics.RecordCacheOperation(tierDisk, "get", "invalid_key")
		s.log.Warn().Err(err).Msg("Rejected cache key")
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	target := s.path(key)
	data, err := util.ReadFile(s.fs, target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.RecordCacheOperation(tierDisk, "get", "miss")
			s.log.Debug().Str("key", key).Msg("Image not found in cache directory")
			return nil, false
		}
		metrics.RecordCacheOperation(tierDisk, "get", "error")
		s.log.Error().Err(fmt.Errorf("%w: %v", ErrStorageRead, err)).Str("path", target).Msg("Failed to retrieve image")
		return nil, false
	}

	metrics.RecordCacheOperation(tierDisk, "get", "hit")
	return data, true
}

// Clear removes every entry directly inside the cache directory. Each entry is
// removed independently: failures are logged, collected, and do not stop the
// remaining deletions. It returns the number of entries removed.
func (s *BlobStore) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		s.log.Error().Err(err).Str("dir", s.dir).Msg("Failed to clear cache data")
		return 0, fmt.Errorf("%w: list %s: %v", ErrStorageRead, s.dir, err)
	}

	var errs []error
	removed := 0
	for _, info := range infos {
		name := s.fs.Join(s.dir, info.Name())
		if err := util.RemoveAll(s.fs, name); err != nil {
			s.log.Warn().Err(err).Str("path", name).Msg("Failed to remove cache entry")
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		removed++
	}

	metrics.RecordCacheOperation(tierDisk, "clear", "success")
	metrics.UpdateDiskCacheBytes(0)
	if len(errs) > 0 {
		return removed, fmt.Errorf("%w: %w", ErrStorageWrite, errors.Join(errs...))
	}
	return removed, nil
}

// SizeBytes sums the sizes of the regular files directly inside the cache
// directory. A missing or unreadable directory counts as zero.
func (s *BlobStore) SizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Str("dir", s.dir).Msg("Failed to measure cache directory")
		}
		return 0
	}

	var total int64
	for _, info := range infos {
		if info == nil || !info.Mode().IsRegular() {
			continue
		}
		total += info.Size()
	}
	metrics.UpdateDiskCacheBytes(total)
	return total
}

// Len returns the number of regular files directly inside the cache directory.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, info := range infos {
		if info != nil && info.Mode().IsRegular() {
			n++
		}
	}
	return n
}
