package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"farmcalc/internal"
	"farmcalc/internal/loot"
)

type pricerFunc func(string) (internal.PricedItem, bool)

func (f pricerFunc) Lookup(name string) (internal.PricedItem, bool) { return f(name) }

func TestExportWorkbook(t *testing.T) {
	items := resolvedItems()
	items = append(items, item("Orphan", ptr(2), "Nowhere"))
	rates := ResolveRates(internal.BatchMeta{}, items, defaultUnits)

	byName := map[string]internal.PricedItem{}
	for _, it := range items {
		byName[it.Name] = it
	}
	totals := loot.Compute(pricerFunc(func(name string) (internal.PricedItem, bool) {
		it, ok := byName[name]
		return it, ok
	}), []internal.LootRow{loot.NewRow("Divine Orb", "1")}, internal.Investment{Quantity: "10", UnitCost: "2"})

	out := filepath.Join(t.TempDir(), "out", "farm.xlsx")
	require.NoError(t, ExportWorkbook(Workbook{Items: items, Rates: rates, Totals: &totals}, out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetCatalog, SheetLoot, SheetTotals}, f.GetSheetList())

	catalogRows, err := f.GetRows(SheetCatalog)
	require.NoError(t, err)
	require.Len(t, catalogRows, 5)
	assert.Equal(t, "Divine Orb", catalogRows[2][0])
	assert.Equal(t, "1.00 Divine Orb", catalogRows[2][6])
	assert.Equal(t, "unresolved", catalogRows[4][7])

	totalRows, err := f.GetRows(SheetTotals)
	require.NoError(t, err)
	assert.Equal(t, []string{"investment", "20.00", "0.11"}, totalRows[1])
	assert.Equal(t, []string{"gain", "160.00", "0.89"}, totalRows[3])
	assert.Equal(t, "800.00", totalRows[4][1])
}

func TestExportCatalogOnly(t *testing.T) {
	out := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, ExportWorkbook(Workbook{Items: resolvedItems()}, out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetCatalog}, f.GetSheetList())
}
