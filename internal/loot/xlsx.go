package loot

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"farmcalc/internal"
	"farmcalc/internal/util"
)

// ReadRowsXLSX reads loot rows from every sheet of a workbook. Columns are
// found from a header row within the first three rows, else taken as
// item | qty | price. A row with a price is a manual row.
func ReadRowsXLSX(content []byte) ([]internal.LootRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.LootRow{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		itemIdx, qtyIdx, priceIdx := -1, -1, -1
		for i, row := range rows {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}
			if i < 3 && itemIdx < 0 {
				itemIdx, qtyIdx, priceIdx = inferColumns(cells)
				if itemIdx >= 0 || qtyIdx >= 0 {
					continue
				}
			}
			if itemIdx < 0 {
				itemIdx, qtyIdx, priceIdx = 0, 1, 2
			}

			item := pickCell(cells, itemIdx)
			qty := pickCell(cells, qtyIdx)
			price := pickCell(cells, priceIdx)
			if item == "" && price == "" {
				continue
			}
			if price != "" {
				out = append(out, NewManualRow(item, qty, price))
			} else {
				out = append(out, NewRow(item, qty))
			}
		}
	}

	return out, nil
}

func inferColumns(headers []string) (itemIdx, qtyIdx, priceIdx int) {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(h))
	}
	itemIdx = findHeaderIndex(norm, []string{"item", "name", "loot"})
	qtyIdx = findHeaderIndex(norm, []string{"qty", "quantity", "count"})
	priceIdx = findHeaderIndex(norm, []string{"price", "value"})
	return
}

func findHeaderIndex(headers []string, candidates []string) int {
	for i, h := range headers {
		for _, want := range candidates {
			if strings.Contains(h, want) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return cells[idx]
	}
	return ""
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, util.CollapseSpaces(c))
	}
	return out
}
