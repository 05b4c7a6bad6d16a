package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// CacheEntry is one cached value with TTL metadata, as stored by FileStore.
//
//nolint:revive // CacheEntry is the canonical name for this exported type.
type CacheEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	// TTLSeconds is kept for reference; ExpiresAt is authoritative.
	TTLSeconds int `json:"ttl_seconds"`
}

// NewCacheEntry creates an entry created at now that expires ttl later.
// A non-positive ttl never expires.
func NewCacheEntry(key string, data json.RawMessage, ttl time.Duration, now time.Time) *CacheEntry {
	e := &CacheEntry{
		Key:        key,
		Data:       data,
		CreatedAt:  now,
		TTLSeconds: int(ttl / time.Second),
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// ExpiredAt reports whether the entry is expired at now.
func (e *CacheEntry) ExpiredAt(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// MarshalJSON formats times as RFC3339 with nanoseconds.
func (e *CacheEntry) MarshalJSON() ([]byte, error) {
	type Alias CacheEntry
	expires := ""
	if !e.ExpiresAt.IsZero() {
		expires = e.ExpiresAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(&struct {
		*Alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at,omitempty"`
	}{
		Alias:     (*Alias)(e),
		CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		ExpiresAt: expires,
	})
}

// UnmarshalJSON parses the RFC3339 timestamps written by MarshalJSON.
func (e *CacheEntry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil CacheEntry")
	}
	type Alias CacheEntry
	aux := &struct {
		*Alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at,omitempty"`
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, aux.CreatedAt); err != nil {
		return err
	}
	e.ExpiresAt = time.Time{}
	if aux.ExpiresAt != "" {
		if e.ExpiresAt, err = time.Parse(time.RFC3339Nano, aux.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}
