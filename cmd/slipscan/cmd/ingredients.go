package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"slipscan/internal"
	"slipscan/internal/pipeline"
)

var ingredientsFile string

var ingredientsCmd = &cobra.Command{
	Use:   "ingredients",
	Short: "Import and normalize recipe ingredients",
}

var ingredientsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load ingredients from a CSV file (id,recipe,name,quantity,unit)",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := readIngredientsFile(ingredientsFile)
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.UpsertIngredients(list); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d ingredients\n", len(list))
		return nil
	},
}

var ingredientsNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize ingredient quantities and units",
	Long: `Run every ingredient through the quantity pipeline and print what would
change. Stored rows are rewritten only with --apply. With --file the CSV is
normalized in place of the database and nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingredientsFile != "" {
			parser, err := newParser()
			if err != nil {
				return err
			}
			list, err := readIngredientsFile(ingredientsFile)
			if err != nil {
				return err
			}
			changes := pipeline.NormalizeIngredients(parser.Units, list)
			printChanges(cmd.OutOrStdout(), changes, false)
			return nil
		}

		processor, _, closeDB, err := newProcessor(true)
		if err != nil {
			return err
		}
		defer closeDB()

		changes, err := processor.NormalizeStoredIngredients()
		if err != nil {
			return err
		}
		printChanges(cmd.OutOrStdout(), changes, cfg.Apply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingredientsCmd)
	ingredientsCmd.AddCommand(ingredientsImportCmd, ingredientsNormalizeCmd)

	ingredientsImportCmd.Flags().StringVar(&ingredientsFile, "file", "", "Ingredients CSV")
	_ = ingredientsImportCmd.MarkFlagRequired("file")
	ingredientsNormalizeCmd.Flags().StringVar(&ingredientsFile, "file", "", "Normalize a CSV instead of the database")
}

func readIngredientsFile(path string) ([]internal.Ingredient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pipeline.ReadIngredientsCSV(f)
}

func printChanges(w io.Writer, changes []internal.IngredientChange, applied bool) {
	for _, c := range changes {
		if !c.Changed {
			continue
		}
		fmt.Fprintf(w, "#%d %s: %q %q -> %q %q\n", c.Before.ID, c.Before.Name,
			c.Before.Quantity, c.Before.Unit, c.After.Quantity, c.After.Unit)
	}
	verb := "would change"
	if applied {
		verb = "changed"
	}
	fmt.Fprintf(w, "%d of %d ingredients %s\n", pipeline.CountChanged(changes), len(changes), verb)
}
