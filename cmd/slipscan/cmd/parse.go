package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"slipscan/internal"
	"slipscan/internal/pipeline"
)

var (
	parseInput  string
	parseType   string
	parseFormat string
	parseOut    string
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse delivery slips from a document",
	Long: `Parse one document into slips. The input type is taken from --type or
guessed from the file extension; "-" reads plain text from stdin.

Output formats:
  json  slips with vendor and items (default)
  csv   one row per item
  xlsx  one row per item, requires --out`,
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseInput, "input", "i", "", "Input file path, or - for stdin")
	parseCmd.Flags().StringVarP(&parseType, "type", "t", "", "Input type (text, html, xlsx, pdf, email)")
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "json", "Output format (json, csv, xlsx)")
	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "", "Output file (default stdout)")
	_ = parseCmd.MarkFlagRequired("input")
}

func runParse(cmd *cobra.Command, args []string) error {
	content, source, err := readInput(cmd.InOrStdin(), parseInput, parseType)
	if err != nil {
		return err
	}

	lines, err := pipeline.ExtractLines(source, content)
	if err != nil {
		return fmt.Errorf("extract %s: %w", parseInput, err)
	}

	processor, _, closeDB, err := newProcessor(false)
	if err != nil {
		return err
	}
	defer closeDB()

	res, err := processor.ProcessLines(lines, nil)
	if err != nil {
		return err
	}
	if res.Applied {
		fmt.Fprintf(cmd.ErrOrStderr(), "stored %d slips (%d items)\n", len(res.Slips), res.Items)
	}

	return writeSlips(cmd.OutOrStdout(), res.Slips, parseFormat, parseOut)
}

func readInput(stdin io.Reader, input, inputType string) ([]byte, internal.DocumentSource, error) {
	source := internal.DocumentSource(strings.ToLower(strings.TrimSpace(inputType)))
	if input == "-" {
		if source == "" {
			source = internal.SourceText
		}
		content, err := io.ReadAll(stdin)
		return content, source, err
	}
	if source == "" {
		source = pipeline.SourceFromPath(input)
	}
	content, err := os.ReadFile(input)
	if err != nil {
		return nil, source, err
	}
	return content, source, nil
}

func writeSlips(stdout io.Writer, slips []internal.Slip, format, out string) error {
	switch strings.ToLower(format) {
	case "xlsx":
		if out == "" {
			return fmt.Errorf("--out is required for xlsx output")
		}
		return pipeline.ExportSlipsToXLSX(pipeline.SlipExportRows(slips), out)
	case "csv":
		if out != "" {
			return pipeline.ExportSlipsToCSVFile(pipeline.SlipExportRows(slips), out)
		}
		return pipeline.ExportSlipsToCSV(pipeline.SlipExportRows(slips), stdout)
	case "json":
		w := stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if slips == nil {
			slips = []internal.Slip{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(slips)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
