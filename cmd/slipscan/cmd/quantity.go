package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"slipscan/internal/pipeline"
	"slipscan/internal/util"
)

var quantityCmd = &cobra.Command{
	Use:   "quantity <quantity> [unit]",
	Short: "Parse and canonicalize one quantity/unit pair",
	Example: `  slipscan quantity 200g
  slipscan quantity 2 l
  slipscan quantity "1/2" cup`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		units, err := util.LoadUnitTable(cfg.UnitAliasesFile)
		if err != nil {
			return err
		}
		unit := ""
		if len(args) > 1 {
			unit = args[1]
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		return enc.Encode(pipeline.NormalizeQuantity(units, args[0], unit))
	},
}

func init() {
	rootCmd.AddCommand(quantityCmd)
}
