package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/config"
	"github.com/rshade/ecolife/internal/migration"
	"github.com/rshade/ecolife/internal/store"
)

var errSameStorage = errors.New("destination storage is the same as the configured storage")

func newMigrateCmd() *cobra.Command {
	var (
		dst         store.Config
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy the ledger into another storage backend",
		Long: `Copies every user's activities, goals, insights and achievements from the
configured storage into a destination backend. Activities already present
in the destination are skipped, so the command can be re-run safely.
Statistics are recomputed in the destination afterwards.`,
		Example: `  # Move a local ledger into MongoDB
  ecolife migrate --to-backend mongo --to-mongo-uri mongodb://localhost:27017

  # Copy into another ledger file
  ecolife migrate --to-backend file --to-file ./backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, config.GetGlobalConfig(), dst, concurrency)
		},
	}

	cmd.Flags().StringVar(&dst.Backend, "to-backend", "", "destination backend: memory, file or mongo")
	cmd.Flags().StringVar(&dst.FilePath, "to-file", "", "destination ledger file for the file backend")
	cmd.Flags().StringVar(&dst.MongoURI, "to-mongo-uri", "", "destination MongoDB connection string")
	cmd.Flags().StringVar(&dst.MongoDatabase, "to-mongo-database", "", "destination MongoDB database")
	cmd.Flags().IntVar(&concurrency, "concurrency", migration.DefaultConcurrency, "users copied in parallel")
	_ = cmd.MarkFlagRequired("to-backend")
	return cmd
}

func runMigrate(cmd *cobra.Command, cfg *config.Config, dst store.Config, concurrency int) error {
	ctx := cmd.Context()
	if dst.MongoURI == "" {
		dst.MongoURI = cfg.Storage.MongoURI
	}
	if dst.MongoDatabase == "" {
		dst.MongoDatabase = cfg.Storage.MongoDatabase
	}
	if dst.Backend == store.BackendFile && dst.FilePath == "" {
		return errors.New("--to-file is required for the file backend")
	}
	if sameStorage(cfg.Storage, dst) {
		return errSameStorage
	}

	src, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening source storage: %w", err)
	}
	defer closeBackend(ctx, src)

	target, err := store.Open(ctx, dst)
	if err != nil {
		return fmt.Errorf("opening destination storage: %w", err)
	}
	report, err := migration.Copy(ctx, src, target, concurrency)
	closeBackend(ctx, target)
	if err != nil {
		return err
	}

	if err := recomputeAll(ctx, cfg, dst, report.Users); err != nil {
		cmd.PrintErrf("Warning: %v; run 'ecolife stats --recompute' against the new storage\n", err)
	}

	if wantJSON() {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Migrated %d users to %s storage\n", len(report.Users), dst.Backend)
	fmt.Fprintf(out, "  Activities:   %d copied, %d already present\n", report.Activities, report.Skipped)
	fmt.Fprintf(out, "  Goals:        %d\n", report.Goals)
	fmt.Fprintf(out, "  Insights:     %d\n", report.Insights)
	fmt.Fprintf(out, "  Achievements: %d\n", report.Achievements)
	return nil
}

// recomputeAll refreshes cached statistics for users now living in dst.
func recomputeAll(ctx context.Context, cfg *config.Config, dst store.Config, users []string) error {
	if len(users) == 0 {
		return nil
	}
	dstCfg := *cfg
	dstCfg.Storage = dst
	tracker, cleanup, err := openTracker(ctx, &dstCfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	for _, user := range users {
		if _, err := tracker.Recompute(ctx, user); err != nil {
			return fmt.Errorf("recomputing statistics for %s: %w", user, err)
		}
	}
	return nil
}

func sameStorage(a, b store.Config) bool {
	if a.Backend != b.Backend {
		return false
	}
	switch b.Backend {
	case store.BackendFile:
		return a.FilePath == b.FilePath
	case store.BackendMongo:
		return a.MongoURI == b.MongoURI && a.MongoDatabase == b.MongoDatabase
	default:
		return false
	}
}

func closeBackend(ctx context.Context, b store.Backend) {
	if err := b.Close(context.WithoutCancel(ctx)); err != nil {
		logger.Warn().Ctx(ctx).Err(err).Msg("closing storage")
	}
}
