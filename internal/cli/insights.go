package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/greenops"
)

func newInsightsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "insights",
		Aliases: []string{"insight"},
		Short:   "List and adopt reduction insights",
	}
	cmd.AddCommand(newInsightsListCmd(flags), newInsightsAdoptCmd())
	return cmd
}

func newInsightsListCmd(flags *rootFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List insights, open ones first",
		Long: `Lists the insights raised by the last 'ecolife evaluate'. Adopted
insights are hidden unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				ins, err := t.ListInsights(ctx, flags.resolveUser())
				if err != nil {
					return err
				}
				if !all {
					ins = openInsights(ins)
				}
				if wantJSON() {
					return writeJSON(cmd.OutOrStdout(), ins)
				}
				return renderInsights(cmd.OutOrStdout(), ins)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include adopted insights")
	return cmd
}

func openInsights(ins []advisor.Insight) []advisor.Insight {
	out := make([]advisor.Insight, 0, len(ins))
	for _, in := range ins {
		if !in.Adopted {
			out = append(out, in)
		}
	}
	return out
}

func renderInsights(w io.Writer, ins []advisor.Insight) error {
	if len(ins) == 0 {
		fmt.Fprintln(w, "No open insights. Run 'ecolife evaluate' after logging activities.")
		return nil
	}
	tw := newTable(w, "ID", "PRIORITY", "CATEGORY", "SAVINGS/MONTH", "ADOPTED", "TITLE")
	for _, in := range ins {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			in.ID, priorityLabel(w, in.Priority), in.Category,
			greenops.FormatKg(in.SavingsPotential), yesNo(in.Adopted), in.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, in := range ins {
		if in.Adopted {
			continue
		}
		fmt.Fprintf(w, "\n%s\n  %s\n  %s\n", in.Title, in.Description, styled(w, mutedStyle, in.Impact))
	}
	return nil
}

func priorityLabel(w io.Writer, p advisor.Priority) string {
	if p == advisor.PriorityHigh {
		return styled(w, badStyle, string(p))
	}
	return string(p)
}

func newInsightsAdoptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adopt <id>",
		Short: "Mark an insight as adopted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				in, err := t.AdoptInsight(ctx, args[0])
				if err != nil {
					return err
				}
				if wantJSON() {
					return writeJSON(cmd.OutOrStdout(), in)
				}
				cmd.Printf("Adopted insight %s: %s\n", in.ID, in.Title)
				return nil
			})
		},
	}
}

func newAchievementsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "achievements",
		Aliases: []string{"badges"},
		Short:   "List achievements and their progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracker(cmd, func(ctx context.Context, t *engine.Tracker) error {
				achs, err := t.ListAchievements(ctx, flags.resolveUser())
				if err != nil {
					return err
				}
				if wantJSON() {
					return writeJSON(cmd.OutOrStdout(), achs)
				}
				return renderAchievements(cmd.OutOrStdout(), achs)
			})
		},
	}
}

func renderAchievements(w io.Writer, achs []advisor.Achievement) error {
	tw := newTable(w, "BADGE", "NAME", "PROGRESS", "UNLOCKED")
	for _, a := range achs {
		unlocked := "-"
		if a.Unlocked() {
			unlocked = formatDate(*a.UnlockedDate)
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%d%%\t%s\n", a.AchievementID, a.Icon, a.Name, a.Progress, unlocked)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d of %d unlocked\n", countUnlocked(achs), len(achs))
	return nil
}
