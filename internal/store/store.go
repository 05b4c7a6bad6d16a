// Package store implements the persistence collaborators of the ledger, the
// goal service and the advisor.
//
// Three backends share one contract: Memory (tests, throwaway servers),
// File (a single JSON document, the CLI default) and Mongo (shared
// deployments).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
)

// ErrStoreCorrupted indicates the state file exists but cannot be read as a
// supported schema. Callers should abort rather than start fresh.
var ErrStoreCorrupted = errors.New("state file corrupted")

// ErrUnknownBackend indicates an unsupported Config.Backend.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMongo  = "mongo"
)

// Backend is everything the engine persists.
type Backend interface {
	ledger.Store
	goals.Store
	advisor.Store

	// UserIDs lists every user with activities or goals, sorted.
	UserIDs(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// Config selects and configures a backend.
type Config struct {
	Backend       string `yaml:"backend"        json:"backend"`
	FilePath      string `yaml:"file_path"      json:"filePath"`
	MongoURI      string `yaml:"mongo_uri"      json:"mongoUri"`
	MongoDatabase string `yaml:"mongo_database" json:"mongoDatabase"`
}

// Open returns the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory:
		return NewMemory(), nil
	case "", BackendFile:
		f, err := OpenFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		return f, nil
	case BackendMongo:
		m, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
