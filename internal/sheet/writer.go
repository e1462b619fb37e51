package sheet

import (
	"strconv"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// OutputSheet is the name of the single sheet in the output workbook.
const OutputSheet = "Produits Enrichis"

// OutputColumns is the fixed column order of the output workbook.
var OutputColumns = []string{
	"SKU",
	"Libellé Gestion",
	"Description Devis",
	"Description E-commerce",
	"Prix d'achat",
	"Prix de revient",
	"Prix de vente",
	"Accessoires",
	"Filtres E-commerce",
	"Score Qualité",
}

const maxColWidth = 50

// numFmtTwoDecimals is the built-in "0.00" number format.
const numFmtTwoDecimals = 2

// WriteOutput writes rows to a new workbook at path. The header row is
// always written, even when rows is empty.
func WriteOutput(path string, rows []model.RowResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OutputSheet); err != nil {
		return eris.Wrap(err, "sheet: rename sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return eris.Wrap(err, "sheet: header style")
	}
	priceStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
	if err != nil {
		return eris.Wrap(err, "sheet: price style")
	}

	widths := make([]int, len(OutputColumns))
	track := func(col int, s string) {
		widths[col] = max(widths[col], utf8.RuneCountInString(s))
	}

	header := make([]any, len(OutputColumns))
	for i, h := range OutputColumns {
		header[i] = h
		track(i, h)
	}
	if err := f.SetSheetRow(OutputSheet, "A1", &header); err != nil {
		return eris.Wrap(err, "sheet: write header")
	}
	last, _ := excelize.ColumnNumberToName(len(OutputColumns))
	if err := f.SetCellStyle(OutputSheet, "A1", last+"1", headerStyle); err != nil {
		return eris.Wrap(err, "sheet: style header")
	}

	for i, r := range rows {
		line := i + 2
		values := []any{
			r.SKU,
			r.ManagementLabel,
			r.QuoteDescription,
			r.EcommerceDescription,
			r.PurchasePrice.InexactFloat64(),
			r.CostPrice.InexactFloat64(),
			r.SellingPrice.InexactFloat64(),
			r.Accessories,
			r.Filters,
			r.QualityScore,
		}
		display := []string{
			r.SKU,
			r.ManagementLabel,
			r.QuoteDescription,
			r.EcommerceDescription,
			r.PurchasePrice.String(),
			r.CostPrice.StringFixed(2),
			r.SellingPrice.StringFixed(2),
			r.Accessories,
			r.Filters,
			strconv.FormatFloat(r.QualityScore, 'f', -1, 64),
		}
		for col, s := range display {
			track(col, s)
		}

		cell, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(OutputSheet, cell, &values); err != nil {
			return eris.Wrapf(err, "sheet: write row %d", line)
		}
		// The purchase price is written as given; only computed prices are
		// formatted to two places.
		from, _ := excelize.CoordinatesToCellName(6, line)
		to, _ := excelize.CoordinatesToCellName(7, line)
		if err := f.SetCellStyle(OutputSheet, from, to, priceStyle); err != nil {
			return eris.Wrapf(err, "sheet: style row %d", line)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(OutputSheet, col, col, float64(min(w+2, maxColWidth))); err != nil {
			return eris.Wrapf(err, "sheet: width of column %s", col)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return eris.Wrapf(err, "sheet: save %s", path)
	}
	return nil
}
