package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rshade/ecolife/internal/engine/cache"
	"github.com/rshade/ecolife/internal/ids"
	"github.com/rshade/ecolife/internal/logging"
	"github.com/rshade/ecolife/internal/metrics"
)

// CacheKey returns the cache key of a user's statistics.
func CacheKey(userID string) string {
	return "stats:" + userID
}

// GenerationKey returns the cache key holding the current generation token
// of a user's statistics. Every invalidation replaces the token.
func GenerationKey(userID string) string {
	return "stats-gen:" + userID
}

// snapshot is the cached form of Statistics. A snapshot is served only while
// its generation equals the user's current generation token.
type snapshot struct {
	Generation string     `json:"generation"`
	Statistics Statistics `json:"statistics"`
}

// Service serves statistics through a cache. It implements
// ledger.Invalidator so ledger writes can drop stale snapshots.
type Service struct {
	agg     *Aggregator
	cache   cache.Store
	metrics *metrics.Metrics
}

// NewService wraps agg with store. A nil store disables caching.
func NewService(agg *Aggregator, store cache.Store) *Service {
	if store == nil {
		store = cache.NopStore{}
	}
	return &Service{agg: agg, cache: store}
}

// WithMetrics records cache lookups on m.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Aggregator returns the underlying aggregator.
func (s *Service) Aggregator() *Aggregator {
	return s.agg
}

// Get returns the cached snapshot, recomputing it on a miss. An unreadable
// cache is treated as a miss, and so is a snapshot from an older generation.
func (s *Service) Get(ctx context.Context, userID string) (Statistics, error) {
	log := logging.FromContext(ctx).With().
		Str("component", "stats").
		Str("operation", "Get").
		Str("user_id", userID).
		Logger()

	data, err := s.cache.Get(ctx, CacheKey(userID))
	switch {
	case err == nil:
		var cached snapshot
		if jsonErr := json.Unmarshal(data, &cached); jsonErr != nil ||
			cached.Generation == "" || cached.Statistics.UserID != userID {
			log.Warn().Ctx(ctx).Msg("discarding unreadable statistics snapshot")
			s.metrics.CacheLookup(metrics.CacheError)
			break
		}
		gen, genErr := s.generation(ctx, userID)
		if genErr == nil && gen == cached.Generation {
			s.metrics.CacheLookup(metrics.CacheHit)
			return cached.Statistics, nil
		}
		log.Debug().Ctx(ctx).Msg("statistics snapshot is stale, recomputing")
		s.metrics.CacheLookup(metrics.CacheMiss)
	case cache.IsMiss(err):
		s.metrics.CacheLookup(metrics.CacheMiss)
	default:
		log.Warn().Ctx(ctx).Err(err).Msg("statistics cache read failed, recomputing")
		s.metrics.CacheLookup(metrics.CacheError)
	}

	return s.Recompute(ctx, userID)
}

// Recompute rebuilds the snapshot and stores it. A failed cache write is
// logged; the fresh statistics are still returned.
//
// The generation token is captured before the ledger is read, so a snapshot
// computed from data that predates a later invalidation is never served.
func (s *Service) Recompute(ctx context.Context, userID string) (Statistics, error) {
	log := logging.FromContext(ctx).With().
		Str("component", "stats").
		Str("user_id", userID).
		Logger()

	gen, genErr := s.currentOrNewGeneration(ctx, userID)
	if genErr != nil {
		log.Warn().Ctx(ctx).Err(genErr).Msg("statistics generation unavailable, snapshot will not be cached")
	}

	st, err := s.agg.Recompute(ctx, userID)
	if err != nil {
		return Statistics{}, err
	}
	if genErr != nil {
		return st, nil
	}

	data, err := json.Marshal(snapshot{Generation: gen, Statistics: st})
	if err != nil {
		return Statistics{}, fmt.Errorf("encoding statistics: %w", err)
	}
	if err = s.cache.Set(ctx, CacheKey(userID), data); err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("statistics cache write failed")
	}
	return st, nil
}

// Invalidate drops the cached snapshot of userID. The generation token is
// replaced first so that a recompute already in flight cannot repopulate the
// cache with what it read before the write.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if err := s.cache.Set(ctx, GenerationKey(userID), []byte(ids.New())); err != nil {
		return fmt.Errorf("invalidating statistics of %s: %w", userID, err)
	}
	if err := s.cache.Delete(ctx, CacheKey(userID)); err != nil {
		return fmt.Errorf("invalidating statistics of %s: %w", userID, err)
	}
	return nil
}

func (s *Service) generation(ctx context.Context, userID string) (string, error) {
	data, err := s.cache.Get(ctx, GenerationKey(userID))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// currentOrNewGeneration returns the user's generation token, starting a new
// one when none is cached.
func (s *Service) currentOrNewGeneration(ctx context.Context, userID string) (string, error) {
	gen, err := s.generation(ctx, userID)
	switch {
	case err == nil && gen != "":
		return gen, nil
	case err != nil && !cache.IsMiss(err):
		return "", err
	}
	gen = ids.New()
	if err = s.cache.Set(ctx, GenerationKey(userID), []byte(gen)); err != nil {
		return "", err
	}
	return gen, nil
}
