// Package export builds spreadsheet reports.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of the generated workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Column is one report column.
type Column struct {
	Header string
	Width  float64
}

// Sheet is a single-sheet report: a bold header row followed by data rows.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]interface{}
}

// Workbook renders the sheet into an .xlsx file.
func Workbook(s Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	name := sheetName(s.Name)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, col := range s.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, col.Header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(name, cell, cell, bold); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
		if col.Width > 0 {
			colName, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(name, colName, colName, col.Width); err != nil {
				return nil, fmt.Errorf("column width: %w", err)
			}
		}
	}

	for r, row := range s.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		row := row
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName trims to Excel's 31 character limit.
func sheetName(name string) string {
	if name == "" {
		return "Report"
	}
	r := []rune(name)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}
