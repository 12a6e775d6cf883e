package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"slipscan/internal/config"
	"slipscan/internal/pipeline"
	"slipscan/internal/storage"
	"slipscan/internal/util"
)

var (
	version = "0.3.0"

	// Global flags
	apply bool

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "slipscan",
	Short: "Parse delivery slips and normalize ingredient quantities",
	Long: `slipscan turns delivery-slip text (plain text, HTML, xlsx, PDF or email)
into slip records with vendor and item lines, and normalizes ingredient
quantity/unit pairs.

Nothing is written unless --apply is given or APPLY=true.

Examples:
  # Parse a text dump and print JSON
  slipscan parse --input slips.txt

  # Parse an emailed slip and store it
  slipscan parse --input slip.eml --apply

  # Preview ingredient normalization
  slipscan ingredients normalize`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("apply") {
			loaded.Apply = apply
		}
		cfg = loaded
		logger = config.NewLogger(cfg)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&apply, "apply", false, "Write results (env: APPLY)")
}

func openDB() (*storage.DB, error) {
	return storage.Open(cfg.DBPath)
}

func newParser() (*pipeline.SlipParser, error) {
	units, err := util.LoadUnitTable(cfg.UnitAliasesFile)
	if err != nil {
		return nil, err
	}
	return pipeline.NewSlipParser(pipeline.NewLineNormalizer(cfg.FoldWidth), units), nil
}

// newProcessor opens the database when apply is on. The returned close func
// is always safe to call.
func newProcessor(needDB bool) (*pipeline.ProcessingService, *storage.DB, func(), error) {
	parser, err := newParser()
	if err != nil {
		return nil, nil, func() {}, err
	}
	if !needDB && !cfg.Apply {
		return pipeline.NewProcessingService(nil, cfg, parser, logger), nil, func() {}, nil
	}
	db, err := openDB()
	if err != nil {
		return nil, nil, func() {}, err
	}
	return pipeline.NewProcessingService(db, cfg, parser, logger), db, func() { _ = db.Close() }, nil
}
