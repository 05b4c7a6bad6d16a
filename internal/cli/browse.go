package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/tui"
)

var errNotTerminal = errors.New("activity browse requires an interactive terminal; use 'activity list' instead")

func newActivityBrowseCmd(flags *rootFlags) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse activities interactively",
		Long: `Opens a full-screen table of the ledger. Press / to filter, s to change
the sort order, enter for details and v to toggle the verified flag.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isWriterTerminal(cmd.OutOrStdout()) {
				return errNotTerminal
			}
			rng, err := rangeFromFlags(from, to)
			if err != nil {
				return err
			}
			user := flags.resolveUser()
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				acts, err := t.List(ctx, user, rng)
				if err != nil {
					return err
				}
				return tui.Run(ctx, fmt.Sprintf("Activities for %s", user), acts, verifier(t))
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	return cmd
}

// verifier adapts the tracker for the browser. A stale statistics cache is
// not an error there: the flag itself was stored.
func verifier(t *engine.Tracker) tui.VerifyFunc {
	return func(ctx context.Context, id string, verified bool) (ledger.Activity, error) {
		a, err := t.SetVerified(ctx, id, verified)
		if errors.Is(err, ledger.ErrStaleStatistics) {
			logger.Warn().Ctx(ctx).Err(err).Str("activity_id", id).Msg("statistics left stale")
			return a, nil
		}
		return a, err
	}
}
