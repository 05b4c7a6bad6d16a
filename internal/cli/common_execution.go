package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/config"
	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
	"github.com/rshade/ecolife/internal/metrics"
	"github.com/rshade/ecolife/internal/store"
)

// openTracker builds a Tracker from cfg: storage backend, statistics cache,
// factor overrides, goal defaults, reference values and category shares.
// The returned cleanup closes the backend and the cache.
func openTracker(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*engine.Tracker, func(), error) {
	log := logging.FromContext(ctx)

	table, err := cfg.EmissionTable()
	if err != nil {
		return nil, nil, fmt.Errorf("building emission table: %w", err)
	}

	backend, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		log.Error().Ctx(ctx).Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to open storage")
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	statsCache, err := cfg.OpenCache(ctx)
	if err != nil {
		_ = backend.Close(ctx)
		log.Error().Ctx(ctx).Err(err).Str("backend", cfg.Cache.Backend).Msg("failed to open cache")
		return nil, nil, fmt.Errorf("opening cache: %w", err)
	}
	log.Debug().Ctx(ctx).
		Str("storage", cfg.Storage.Backend).
		Str("cache", cfg.Cache.Backend).
		Msg("tracker opened")

	tracker := engine.New(backend, engine.Options{
		Table:        table,
		GoalDefaults: cfg.Goals,
		Params:       cfg.Carbon.Params,
		Shares:       cfg.Shares(),
		Cache:        statsCache,
		Metrics:      m,
	})

	cleanup := func() {
		if err := tracker.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("closing storage")
		}
		if c, ok := statsCache.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn().Ctx(ctx).Err(err).Msg("closing cache")
			}
		}
	}
	return tracker, cleanup, nil
}

// withTracker opens a Tracker for the duration of fn.
func withTracker(cmd *cobra.Command, fn func(ctx context.Context, t *engine.Tracker) error) error {
	ctx := cmd.Context()
	tracker, cleanup, err := openTracker(ctx, config.GetGlobalConfig(), nil)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, tracker)
}

// reportStale prints a warning for writes that succeeded but left stale
// statistics behind, and swallows that error.
func reportStale(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ledger.ErrStaleStatistics) {
		cmd.PrintErrf("Warning: %v; run 'ecolife stats --recompute'\n", err)
		return nil
	}
	return err
}
