package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"farmcalc/internal"
	"farmcalc/internal/format"
	"farmcalc/internal/loot"
)

const (
	SheetCatalog = "catalog"
	SheetLoot    = "loot"
	SheetTotals  = "totals"
)

type Workbook struct {
	Items  []internal.PricedItem
	Rates  internal.Rates
	Totals *loot.Totals
}

// ExportWorkbook writes the catalog and, when totals are given, the loot
// breakdown and totals.
func ExportWorkbook(wb Workbook, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetCatalog); err != nil {
		return err
	}
	writeCatalogSheet(f, wb)

	if wb.Totals != nil {
		if _, err := f.NewSheet(SheetLoot); err != nil {
			return err
		}
		writeLootSheet(f, wb)
		if _, err := f.NewSheet(SheetTotals); err != nil {
			return err
		}
		writeTotalsSheet(f, wb)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeCatalogSheet(f *excelize.File, wb Workbook) {
	setRow(f, SheetCatalog, 1, "name", "section", "quoted_amount", "quoted_unit", "listed_value",
		"reference_value", "display", "status")

	for i, item := range wb.Items {
		display := ""
		if item.ReferenceValue != nil {
			display = format.Smart(*item.ReferenceValue, wb.Rates).String()
		}
		setRow(f, SheetCatalog, i+2,
			item.Name, item.Section, derefFloat(item.QuotedAmount), item.QuotedUnit, derefFloat(item.ListedValue),
			derefFloat(item.ReferenceValue), display, itemStatus(item))
	}
}

func writeLootSheet(f *excelize.File, wb Workbook) {
	setRow(f, SheetLoot, 1, "id", "item", "manual", "quantity", "price", "total", "resolved", "display")

	for i, rv := range wb.Totals.Rows {
		setRow(f, SheetLoot, i+2,
			rv.ID.String(), rv.Item, rv.Manual, rv.Quantity.InexactFloat64(), rv.Price.InexactFloat64(),
			rv.Total.InexactFloat64(), rv.Resolved, format.Smart(rv.Total.InexactFloat64(), wb.Rates).String())
	}
}

func writeTotalsSheet(f *excelize.File, wb Workbook) {
	t := wb.Totals
	setRow(f, SheetTotals, 1, "metric", wb.Rates.ReferenceUnit, wb.Rates.SecondaryUnit)

	metrics := []struct {
		name  string
		value float64
	}{
		{"investment", t.Investment.InexactFloat64()},
		{"loot", t.Loot.InexactFloat64()},
		{"gain", t.Gain.InexactFloat64()},
	}
	for i, m := range metrics {
		dual := format.Dual(m.value, wb.Rates)
		setRow(f, SheetTotals, i+2, m.name, dual.Reference.Text, dual.Secondary.Text)
	}

	roi := ""
	if t.ROI.Valid {
		roi = t.ROI.Decimal.StringFixed(2)
	}
	setRow(f, SheetTotals, len(metrics)+2, "roi_percent", roi, "")
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	for col, value := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, value)
	}
}

func itemStatus(item internal.PricedItem) string {
	switch {
	case item.ReferenceValue == nil:
		return "unresolved"
	case item.Inconsistent:
		return "inconsistent"
	default:
		return "ok"
	}
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
