package loot

import (
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"farmcalc/internal"
	"farmcalc/internal/util"
)

// Pricer resolves an item name to its catalog entry, case-insensitively.
type Pricer interface {
	Lookup(name string) (internal.PricedItem, bool)
}

type RowValue struct {
	ID       uuid.UUID
	Item     string
	Manual   bool
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Total    decimal.Decimal
	// Resolved is false for catalog rows whose name is unknown or whose
	// reference value could not be derived.
	Resolved bool
}

type Totals struct {
	Investment decimal.Decimal
	Loot       decimal.Decimal
	Gain       decimal.Decimal
	// ROI is Gain as a percentage of Investment; invalid when nothing was invested.
	ROI  decimal.NullDecimal
	Rows []RowValue
}

var hundred = decimal.NewFromInt(100)

// Compute recomputes investment, loot and gain from scratch. Amounts are in
// the catalog's reference unit.
func Compute(c Pricer, rows []internal.LootRow, inv internal.Investment) Totals {
	t := Totals{
		Investment: coerce(inv.Quantity).Mul(coerce(inv.UnitCost)),
		Loot:       decimal.Zero,
		Rows:       make([]RowValue, 0, len(rows)),
	}

	for _, row := range rows {
		rv := valueRow(c, row)
		t.Loot = t.Loot.Add(rv.Total)
		t.Rows = append(t.Rows, rv)
	}

	t.Gain = t.Loot.Sub(t.Investment)
	if t.Investment.IsPositive() {
		t.ROI = decimal.NullDecimal{Decimal: t.Gain.Div(t.Investment).Mul(hundred), Valid: true}
	}
	return t
}

func valueRow(c Pricer, row internal.LootRow) RowValue {
	rv := RowValue{
		ID:       row.ID,
		Item:     util.CollapseSpaces(row.Item),
		Manual:   row.Manual,
		Quantity: coerce(row.Quantity),
		Price:    decimal.Zero,
	}

	switch {
	case row.Manual:
		rv.Price = coerce(row.ManualPrice)
		rv.Resolved = true
	case c != nil:
		if item, ok := c.Lookup(row.Item); ok && item.ReferenceValue != nil && isFinite(*item.ReferenceValue) {
			rv.Price = decimal.NewFromFloat(*item.ReferenceValue)
			rv.Resolved = true
		}
	}

	rv.Total = rv.Price.Mul(rv.Quantity)
	return rv
}

// coerce reads a numeric input field; anything unparseable counts as 0.
func coerce(field string) decimal.Decimal {
	n, ok := util.ParseCompactNumber(field)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(n)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
