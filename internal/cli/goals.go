package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/greenops"
)

func newGoalsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "goals", Short: "Show or change emission goals"}
	cmd.AddCommand(newGoalsShowCmd(flags), newGoalsSetCmd(flags))
	return cmd
}

func newGoalsShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				g, err := t.Goals(ctx, flags.resolveUser())
				if err != nil {
					return err
				}
				return printGoals(cmd, g)
			})
		},
	}
}

func newGoalsSetCmd(flags *rootFlags) *cobra.Command {
	var daily, weekly, monthly, yearly, reduction float64

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more goals",
		Example: `  # Lower the daily goal and raise the reduction target
  ecolife goals set --daily 4 --reduction 25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var u goals.Update
			fs := cmd.Flags()
			if fs.Changed("daily") {
				u.DailyGoal = &daily
			}
			if fs.Changed("weekly") {
				u.WeeklyGoal = &weekly
			}
			if fs.Changed("monthly") {
				u.MonthlyGoal = &monthly
			}
			if fs.Changed("yearly") {
				u.YearlyGoal = &yearly
			}
			if fs.Changed("reduction") {
				u.ReductionTarget = &reduction
			}
			if u.IsEmpty() {
				return fmt.Errorf("%w: pass at least one of --daily, --weekly, --monthly, --yearly, --reduction",
					goals.ErrInvalidGoals)
			}
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				g, err := t.UpdateGoals(ctx, flags.resolveUser(), u)
				if err = reportStale(cmd, err); err != nil {
					return err
				}
				return printGoals(cmd, g)
			})
		},
	}

	cmd.Flags().Float64Var(&daily, "daily", 0, "daily goal in kg CO2e")
	cmd.Flags().Float64Var(&weekly, "weekly", 0, "weekly goal in kg CO2e")
	cmd.Flags().Float64Var(&monthly, "monthly", 0, "monthly goal in kg CO2e")
	cmd.Flags().Float64Var(&yearly, "yearly", 0, "yearly goal in kg CO2e")
	cmd.Flags().Float64Var(&reduction, "reduction", 0, "reduction target in percent")
	return cmd
}

func printGoals(cmd *cobra.Command, g goals.Goals) error {
	if wantJSON() {
		return writeJSON(cmd.OutOrStdout(), g)
	}
	return renderGoals(cmd.OutOrStdout(), g)
}

func renderGoals(w io.Writer, g goals.Goals) error {
	writeHeading(w, "Goals for "+g.UserID)
	tw := newTable(w, "PERIOD", "GOAL")
	fmt.Fprintf(tw, "Daily\t%s\n", greenops.FormatKg(g.DailyGoal))
	fmt.Fprintf(tw, "Weekly\t%s\n", greenops.FormatKg(g.WeeklyGoal))
	fmt.Fprintf(tw, "Monthly\t%s\n", greenops.FormatKg(g.MonthlyGoal))
	fmt.Fprintf(tw, "Yearly\t%s\n", greenops.FormatKg(g.YearlyGoal))
	fmt.Fprintf(tw, "Reduction target\t%s%%\n", formatAmount(g.ReductionTarget))
	return tw.Flush()
}
