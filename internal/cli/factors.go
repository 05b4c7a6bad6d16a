package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/config"
	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/greenops"
)

// newFactorsCmd lists the emission factor table, including config
// overrides. It needs no storage.
func newFactorsCmd(_ *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "factors",
		Short: "List emission factors per activity type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := config.GetGlobalConfig().EmissionTable()
			if err != nil {
				return err
			}
			factors := table.Factors()
			if wantJSON() {
				return writeJSON(cmd.OutOrStdout(), factors)
			}
			return renderFactors(cmd.OutOrStdout(), factors)
		},
	}
}

func renderFactors(w io.Writer, factors []emissions.Factor) error {
	tw := newTable(w, "TYPE", "CATEGORY", "UNIT", "KG CO2E/UNIT")
	for _, f := range factors {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Type, f.Category, f.Unit, greenops.FormatFloat(f.KgPerUnit, 3))
	}
	return tw.Flush()
}
