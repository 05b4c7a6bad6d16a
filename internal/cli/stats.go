package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/greenops"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	var recompute bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show emission statistics, goals and equivalencies",
		Long: `Shows the statistics derived from the ledger. Cached statistics are used
when available; --recompute rebuilds them from every recorded activity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := flags.resolveUser()
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				if recompute {
					if _, err := t.Recompute(ctx, user); err != nil {
						return err
					}
				}
				sum, err := t.Summary(ctx, user)
				if err != nil {
					return err
				}
				if wantJSON() {
					return writeJSON(cmd.OutOrStdout(), sum)
				}
				return renderSummary(cmd.OutOrStdout(), sum)
			})
		},
	}
	cmd.Flags().BoolVar(&recompute, "recompute", false, "rebuild statistics from the ledger first")
	return cmd
}

func renderSummary(w io.Writer, sum engine.Summary) error {
	st := sum.Statistics
	writeHeading(w, "Carbon footprint for "+st.UserID)
	if st.ActivityCount == 0 {
		fmt.Fprintln(w, "No activities recorded yet.")
		return nil
	}

	tw := newTable(w, "METRIC", "VALUE")
	fmt.Fprintf(tw, "Total\t%s\n", greenops.FormatKg(st.TotalEmissions))
	fmt.Fprintf(tw, "Daily average\t%s (goal %s)\n",
		greenops.FormatKg(st.AverageDaily), greenops.FormatKg(sum.Goals.DailyGoal))
	fmt.Fprintf(tw, "Weekly average\t%s (goal %s)\n",
		greenops.FormatKg(st.AverageWeekly), greenops.FormatKg(sum.Goals.WeeklyGoal))
	fmt.Fprintf(tw, "Monthly average\t%s (goal %s)\n",
		greenops.FormatKg(st.AverageMonthly), greenops.FormatKg(sum.Goals.MonthlyGoal))
	fmt.Fprintf(tw, "Activities\t%d over %d days\n", st.ActivityCount, st.ActiveDays)
	if st.BestDay != nil {
		fmt.Fprintf(tw, "Best day\t%s (%s)\n", formatDate(st.BestDay.Date), greenops.FormatKg(st.BestDay.Emissions))
	}
	if st.WorstDay != nil {
		fmt.Fprintf(tw, "Worst day\t%s (%s)\n", formatDate(st.WorstDay.Date), greenops.FormatKg(st.WorstDay.Emissions))
	}
	fmt.Fprintf(tw, "Green streak\t%d days (longest %d)\n", st.CurrentGreenStreak, st.LongestGreenStreak)
	fmt.Fprintf(tw, "Trees to offset\t%s\n", formatAmount(st.TreesNeededToOffset))
	fmt.Fprintf(tw, "vs global average\t%s\n", comparison(w, st.ComparisonToAverage.Global))
	fmt.Fprintf(tw, "vs national average\t%s\n", comparison(w, st.ComparisonToAverage.National))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	writeHeading(w, "By category")
	tw = newTable(w, "CATEGORY", "CO2E")
	for _, c := range emissions.Categories() {
		fmt.Fprintf(tw, "%s\t%s\n", c, greenops.FormatKg(st.CategoryEmissions(c)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !sum.Equivalencies.IsEmpty {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styled(w, mutedStyle, sum.Equivalencies.DisplayText))
	}
	fmt.Fprintln(w, styled(w, mutedStyle, "Last updated "+st.LastUpdated.UTC().Format("2006-01-02 15:04 MST")))
	return nil
}

// comparison colours deltas: below the reference is good.
func comparison(w io.Writer, pct float64) string {
	s := greenops.FormatPercentDelta(pct)
	if pct > 0 {
		return styled(w, badStyle, s)
	}
	return styled(w, goodStyle, s)
}

func newEvaluateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Run the advisor: refresh insights and award achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				ev, err := t.Evaluate(ctx, flags.resolveUser())
				if err != nil {
					return err
				}
				if wantJSON() {
					return writeJSON(cmd.OutOrStdout(), ev)
				}
				return renderEvaluation(cmd.OutOrStdout(), ev)
			})
		},
	}
}

func renderEvaluation(w io.Writer, ev advisor.Evaluation) error {
	open := 0
	for _, in := range ev.Insights {
		if !in.Adopted {
			open++
		}
	}
	fmt.Fprintf(w, "%d open insights, %d achievements unlocked in total\n", open, countUnlocked(ev.Achievements))
	if len(ev.NewlyUnlocked) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	writeHeading(w, "New achievements")
	names := make(map[advisor.BadgeID]advisor.Achievement, len(ev.Achievements))
	for _, a := range ev.Achievements {
		names[a.AchievementID] = a
	}
	for _, id := range ev.NewlyUnlocked {
		a := names[id]
		fmt.Fprintf(w, "  %s %s: %s\n", a.Icon, styled(w, goodStyle, a.Name), a.Description)
	}
	return nil
}

func countUnlocked(achs []advisor.Achievement) int {
	n := 0
	for _, a := range achs {
		if a.Unlocked() {
			n++
		}
	}
	return n
}
