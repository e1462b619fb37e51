// Package sheet reads product input spreadsheets and writes the enriched
// output workbook.
package sheet

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// ErrMissingColumn is returned when a required input column is absent.
var ErrMissingColumn = eris.New("sheet: missing required column")

// ErrEmptyWorkbook is returned when the input has no sheet or no header row.
var ErrEmptyWorkbook = eris.New("sheet: workbook has no header row")

// ReadInput reads the first sheet of an XLSX file. The first row is the
// header; it must contain a SKU column and a purchase price column. Fully
// blank rows are dropped; everything else is returned as-is for the
// pipeline's own checks.
func ReadInput(path string) ([]model.InputRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, eris.Wrapf(ErrEmptyWorkbook, "sheet: %s", path)
	}
	sh := f.Sheets[0]

	skuCol, priceCol := -1, -1
	for i, cell := range sh.Rows[0].Cells {
		switch CanonicalColumn(cell.String()) {
		case ColumnSKU:
			if skuCol < 0 {
				skuCol = i
			}
		case ColumnPrice:
			if priceCol < 0 {
				priceCol = i
			}
		}
	}
	if skuCol < 0 {
		return nil, eris.Wrapf(ErrMissingColumn, "column %q", ColumnSKU)
	}
	if priceCol < 0 {
		return nil, eris.Wrapf(ErrMissingColumn, "column %q", ColumnPrice)
	}

	var rows []model.InputRow
	for i, row := range sh.Rows[1:] {
		if row == nil || isBlank(row) {
			continue
		}
		rows = append(rows, model.InputRow{
			Line:          i + 2,
			SKU:           cellValue(row, skuCol),
			PurchasePrice: cellValue(row, priceCol),
		})
	}
	return rows, nil
}

func cellValue(row *xlsx.Row, col int) string {
	if col >= len(row.Cells) || row.Cells[col] == nil {
		return ""
	}
	cell := row.Cells[col]
	// Raw value keeps full precision and skips display formats like "#,##0.00 €".
	if cell.Type() == xlsx.CellTypeNumeric {
		return strings.TrimSpace(cell.Value)
	}
	return strings.TrimSpace(cell.String())
}

func isBlank(row *xlsx.Row) bool {
	for _, c := range row.Cells {
		if c != nil && strings.TrimSpace(c.String()) != "" {
			return false
		}
	}
	return true
}
