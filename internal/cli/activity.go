package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/greenops"
	"github.com/rshade/ecolife/internal/ledger"
)

// newActivityCmd creates the activity command group.
func newActivityCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"activities", "act"},
		Short:   "Record and manage logged activities",
	}
	cmd.AddCommand(
		newActivityAddCmd(flags),
		newActivityListCmd(flags),
		newActivityBrowseCmd(flags),
		newActivityImportCmd(flags),
		newActivityDeleteCmd(),
		newActivityNoteCmd(),
		newActivityVerifyCmd(),
	)
	return cmd
}

func newActivityAddCmd(flags *rootFlags) *cobra.Command {
	var unit, date, notes string

	cmd := &cobra.Command{
		Use:   "add <activity-type> <value>",
		Short: "Record an activity and its emissions",
		Long: `Records one activity in the ledger. The value is measured in the unit
fixed for the activity type (see 'ecolife factors'); --unit is checked
against it when given.`,
		Example: `  # 12 km by car today
  ecolife activity add car 12

  # 3 kg of recycling on a given day, with a note
  ecolife activity add recycling 3 --date 2025-01-06 --notes "glass and paper"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", emissions.ErrInvalidValue, args[1])
			}
			when, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				a, err := t.Record(ctx, ledger.NewActivity{
					UserID:       flags.resolveUser(),
					ActivityType: emissions.ActivityType(args[0]),
					Value:        &value,
					Unit:         emissions.Unit(unit),
					Date:         when,
					Notes:        notes,
				})
				if err = reportStale(cmd, err); err != nil {
					return err
				}
				if wantJSON() {
					return writeJSON(cmd.OutOrStdout(), a)
				}
				cmd.Printf("Recorded %s %s %s: %s CO2e (id %s)\n",
					a.ActivityType, formatAmount(a.Value), a.Unit, greenops.FormatKg(a.EmissionsCO2), a.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&unit, "unit", "", "unit of the value; must match the activity type")
	cmd.Flags().StringVar(&date, "date", "", "activity date (YYYY-MM-DD or RFC 3339, default now)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text note")
	return cmd
}

func newActivityListCmd(flags *rootFlags) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded activities, oldest first",
		Example: `  # Everything
  ecolife activity list

  # One week
  ecolife activity list --from 2025-01-01 --to 2025-01-07`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := rangeFromFlags(from, to)
			if err != nil {
				return err
			}
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				acts, err := t.List(ctx, flags.resolveUser(), rng)
				if err != nil {
					return err
				}
				if wantJSON() {
					if acts == nil {
						acts = []ledger.Activity{}
					}
					return writeJSON(cmd.OutOrStdout(), acts)
				}
				return renderActivities(cmd.OutOrStdout(), acts)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	return cmd
}

func rangeFromFlags(from, to string) (*ledger.DateRange, error) {
	f, err := parseDateFlag("from", from)
	if err != nil {
		return nil, err
	}
	t, err := parseDateFlag("to", to)
	if err != nil {
		return nil, err
	}
	if f == nil && t == nil {
		return nil, nil
	}
	var lo, hi time.Time
	if f != nil {
		lo = *f
	}
	if t != nil {
		hi = *t
	}
	r := ledger.DayRange(lo, hi)
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return nil, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return &r, nil
}

func renderActivities(w io.Writer, acts []ledger.Activity) error {
	if len(acts) == 0 {
		fmt.Fprintln(w, "No activities recorded.")
		return nil
	}
	tw := newTable(w, "ID", "DATE", "TYPE", "VALUE", "UNIT", "CO2E", "VERIFIED", "NOTES")
	var total float64
	for _, a := range acts {
		total += a.EmissionsCO2
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, formatDate(a.Date), a.ActivityType, formatAmount(a.Value), a.Unit,
			greenops.FormatKg(a.EmissionsCO2), yesNo(a.Verified), a.Notes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d activities, %s CO2e\n", len(acts), greenops.FormatKg(total))
	return nil
}

func newActivityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an activity",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				if err := reportStale(cmd, t.Delete(ctx, args[0])); err != nil {
					return err
				}
				cmd.Printf("Deleted activity %s\n", args[0])
				return nil
			})
		},
	}
}

func newActivityNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Replace the notes of an activity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				a, err := t.Annotate(ctx, args[0], args[1])
				if err = reportStale(cmd, err); err != nil {
					return err
				}
				return printActivity(cmd, a, "Updated notes on")
			})
		},
	}
}

func newActivityVerifyCmd() *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Mark an activity as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				a, err := t.SetVerified(ctx, args[0], !unset)
				if err = reportStale(cmd, err); err != nil {
					return err
				}
				verb := "Verified"
				if unset {
					verb = "Cleared verification on"
				}
				return printActivity(cmd, a, verb)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "clear the verified flag instead")
	return cmd
}

func printActivity(cmd *cobra.Command, a ledger.Activity, verb string) error {
	if wantJSON() {
		return writeJSON(cmd.OutOrStdout(), a)
	}
	cmd.Printf("%s activity %s\n", verb, a.ID)
	return nil
}
