package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/greenops"
	"github.com/rshade/ecolife/internal/ingest"
	"github.com/rshade/ecolife/internal/ledger"
)

// importResult is the JSON shape of an import run.
type importResult struct {
	Imported []ledger.Activity `json:"imported"`
	Failed   []string          `json:"failed"`
}

func newActivityImportCmd(flags *rootFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Record activities from a JSON, YAML or CSV file",
		Long: `Reads a list of activities and records each one. JSON and YAML files hold a
list of objects with activityType, value, unit, date and notes keys. CSV
files need a header row naming the same columns; activityType and value
are required.

Every record is checked before anything is written. Records the ledger
rejects are reported and the rest are kept.`,
		Example: `  ecolife activity import week.csv
  ecolife activity import trips.json --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			records, err := ingest.LoadFile(ctx, args[0])
			if err != nil {
				return err
			}
			user := flags.resolveUser()
			requests := make([]ledger.NewActivity, 0, len(records))
			for i, rec := range records {
				in, err := rec.NewActivity(user, i+1)
				if err != nil {
					return err
				}
				requests = append(requests, in)
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d activities would be imported from %s\n", len(requests), args[0])
				return nil
			}
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				return runImport(ctx, cmd, t, requests)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and check the file without recording anything")
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, t *engine.Tracker, requests []ledger.NewActivity) error {
	result := importResult{Imported: []ledger.Activity{}, Failed: []string{}}
	var (
		failures []error
		stale    error
	)
	for i, in := range requests {
		a, err := t.Record(ctx, in)
		switch {
		case err == nil:
		case errors.Is(err, ledger.ErrStaleStatistics):
			stale = err
		default:
			failures = append(failures, fmt.Errorf("record %d: %w", i+1, err))
			result.Failed = append(result.Failed, fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}
		result.Imported = append(result.Imported, a)
	}
	if stale != nil {
		_ = reportStale(cmd, stale)
	}

	if wantJSON() {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		var total float64
		for _, a := range result.Imported {
			total += a.EmissionsCO2
		}
		fmt.Fprintf(out, "Imported %d of %d activities: %s CO2e\n",
			len(result.Imported), len(requests), greenops.FormatKg(total))
		for _, f := range result.Failed {
			fmt.Fprintf(out, "  failed %s\n", f)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d activities were not imported: %w", len(failures), len(requests), errors.Join(failures...))
	}
	return nil
}
