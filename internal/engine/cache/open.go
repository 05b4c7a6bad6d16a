package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend   string
	Directory string
	TTL       time.Duration
	Redis     RedisConfig
}

// Open builds the Store named by opts.Backend. An empty backend means memory.
func Open(ctx context.Context, opts Options) (Store, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(ttl), nil
	case BackendFile:
		fs, err := NewFileStore(opts.Directory, ttl)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case BackendRedis:
		rc := opts.Redis
		rc.TTL = ttl
		rs, err := NewRedisStore(ctx, rc)
		if err != nil {
			return nil, err
		}
		return rs, nil
	case BackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
