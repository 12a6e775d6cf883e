package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"slipscan/internal"
	"slipscan/internal/util"
)

var exportHeaders = []string{"slip_no", "vendor", "line_no", "raw_line", "item_name", "quantity", "unit", "price"}

// SlipExportRows flattens slips into one row per item. A slip with no items
// still gets a row so it shows up in the sheet.
func SlipExportRows(slips []internal.Slip) []internal.SlipExportRow {
	var rows []internal.SlipExportRow
	for _, slip := range slips {
		vendor := util.Deref(slip.Vendor)
		if len(slip.Items) == 0 {
			rows = append(rows, internal.SlipExportRow{SlipNo: slip.SlipNo, Vendor: vendor})
			continue
		}
		for _, item := range slip.Items {
			row := internal.SlipExportRow{
				SlipNo:   slip.SlipNo,
				Vendor:   vendor,
				LineNo:   item.LineNo,
				RawLine:  item.Raw,
				ItemName: item.Name,
				Quantity: item.Qty.Text(),
				Unit:     item.Qty.Unit,
			}
			if item.Price != nil {
				row.Price = strconv.FormatFloat(*item.Price, 'f', -1, 64)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func ExportSlipsToXLSX(rows []internal.SlipExportRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.SlipNo)
		set(2, row.Vendor)
		if row.LineNo > 0 {
			set(3, row.LineNo)
		}
		set(4, row.RawLine)
		set(5, row.ItemName)
		set(6, numericCell(row.Quantity))
		set(7, row.Unit)
		set(8, numericCell(row.Price))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func ExportSlipsToCSV(rows []internal.SlipExportRow, w io.Writer) error {
	if rows == nil {
		rows = []internal.SlipExportRow{}
	}
	return gocsv.Marshal(&rows, w)
}

func ExportSlipsToCSVFile(rows []internal.SlipExportRow, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := ExportSlipsToCSV(rows, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadIngredientsCSV reads an id,recipe,name,quantity,unit sheet.
func ReadIngredientsCSV(r io.Reader) ([]internal.Ingredient, error) {
	var list []internal.Ingredient
	if err := gocsv.Unmarshal(r, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func numericCell(value string) any {
	if value == "" {
		return ""
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}
	return value
}
