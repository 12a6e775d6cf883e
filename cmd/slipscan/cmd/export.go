package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slipscan/internal/pipeline"
	"slipscan/internal/storage"
)

var (
	exportDocumentID int
	exportOut        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored slips of one document to xlsx or csv",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.GetSlipExportRows(exportDocumentID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("no export rows for document %d", exportDocumentID)
		}

		if strings.EqualFold(filepath.Ext(exportOut), ".csv") {
			err = pipeline.ExportSlipsToCSVFile(rows, exportOut)
		} else {
			err = pipeline.ExportSlipsToXLSX(rows, exportOut)
		}
		if err != nil {
			return err
		}
		if cfg.Apply {
			if err := db.UpdateDocumentStatus(exportDocumentID, storage.StatusExported); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(rows), exportOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().IntVar(&exportDocumentID, "document", 0, "Document id")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (.xlsx or .csv)")
	_ = exportCmd.MarkFlagRequired("document")
	_ = exportCmd.MarkFlagRequired("out")
}
