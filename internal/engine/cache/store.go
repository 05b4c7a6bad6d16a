package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const cacheFileExtension = ".json"

// Common cache errors.
var (
	ErrCacheNotFound   = errors.New("cache entry not found")
	ErrCacheExpired    = errors.New("cache entry expired")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrCacheDisabled   = errors.New("cache is disabled")
)

// Store is a byte-oriented key/value cache with expiration.
//
// Get returns ErrCacheNotFound or ErrCacheExpired on a miss. Delete is
// idempotent: deleting a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// IsMiss reports whether err means the key simply has no usable value.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheNotFound) || errors.Is(err, ErrCacheExpired) || errors.Is(err, ErrCacheDisabled)
}

// NopStore disables caching: reads miss, writes and deletes succeed.
type NopStore struct{}

// Get always returns ErrCacheDisabled.
func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheDisabled }

// Set discards data.
func (NopStore) Set(context.Context, string, []byte) error { return nil }

// Delete does nothing.
func (NopStore) Delete(context.Context, string) error { return nil }

// FileStore keeps one JSON file per key. Safe for concurrent use within a
// process; writes go through a temp file and rename.
type FileStore struct {
	directory string
	ttl       time.Duration
	now       func() time.Time
	mu        sync.RWMutex
}

// NewFileStore creates directory if needed. A non-positive ttl never expires.
func NewFileStore(directory string, ttl time.Duration) (*FileStore, error) {
	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if err := os.MkdirAll(directory, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{directory: directory, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the clock used for expiry.
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	s.now = now
	return s
}

// Get reads the entry for key. Expired entries are removed.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidCacheKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath := s.keyToFilePath(key)
	s.mu.RLock()
	data, err := os.ReadFile(filePath)
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry CacheEntry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}
	if entry.Key != key {
		// Hash collision or a foreign file.
		return nil, ErrCacheNotFound
	}
	if entry.ExpiredAt(s.now()) {
		s.mu.Lock()
		_ = os.Remove(filePath)
		s.mu.Unlock()
		return nil, ErrCacheExpired
	}
	return entry.Data, nil
}

// Set writes data under key, replacing any previous entry. data must be JSON.
func (s *FileStore) Set(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(data) {
		return errors.New("file cache stores JSON values only")
	}

	entry := NewCacheEntry(key, json.RawMessage(data), s.ttl, s.now())
	entryData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.keyToFilePath(key)
	tempPath := filePath + ".tmp"
	if writeErr := os.WriteFile(tempPath, entryData, 0o600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if renameErr := os.Rename(tempPath, filePath); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}
	return nil
}

// Delete removes the entry for key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.keyToFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// CleanupExpired removes every expired entry and returns how many it removed.
func (s *FileStore) CleanupExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	now := s.now()
	removed := 0
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != cacheFileExtension {
			continue
		}
		filePath := filepath.Join(s.directory, dirEntry.Name())
		data, readErr := os.ReadFile(filePath)
		if readErr != nil {
			continue
		}
		var entry CacheEntry
		if json.Unmarshal(data, &entry) != nil {
			continue
		}
		if entry.ExpiredAt(now) && os.Remove(filePath) == nil {
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of entries on disk, expired ones included.
func (s *FileStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == cacheFileExtension {
			count++
		}
	}
	return count, nil
}

// Directory returns the cache directory.
func (s *FileStore) Directory() string {
	return s.directory
}

// keyToFilePath keeps a readable prefix and appends a hash so that distinct
// keys never share a file after sanitising.
func (s *FileStore) keyToFilePath(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	const maxPrefix = 64
	if len(safe) > maxPrefix {
		safe = safe[:maxPrefix]
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.directory, safe+"-"+hex.EncodeToString(sum[:8])+cacheFileExtension)
}
