package loot

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmcalc/internal"
	"farmcalc/internal/util"
)

type mapPricer map[string]internal.PricedItem

func (m mapPricer) Lookup(name string) (internal.PricedItem, bool) {
	item, ok := m[strings.ToLower(util.CollapseSpaces(name))]
	return item, ok
}

func priced(name string, value *float64) internal.PricedItem {
	return internal.PricedItem{Key: strings.ToLower(name), Name: name, ReferenceValue: value}
}

func TestComputeInvestmentLootGain(t *testing.T) {
	c := mapPricer{"divine orb": priced("Divine Orb", util.FloatPtr(180))}
	rows := []internal.LootRow{NewRow("Divine Orb", "1")}

	got := Compute(c, rows, internal.Investment{Quantity: "10", UnitCost: "2"})

	assert.Equal(t, "20", got.Investment.String())
	assert.Equal(t, "180", got.Loot.String())
	assert.Equal(t, "160", got.Gain.String())
	require.True(t, got.ROI.Valid)
	assert.Equal(t, "800", got.ROI.Decimal.String())
	require.Len(t, got.Rows, 1)
	assert.True(t, got.Rows[0].Resolved)
}

func TestComputeUnresolvedRowsCountZero(t *testing.T) {
	c := mapPricer{"chaos orb": priced("Chaos Orb", nil)}
	rows := []internal.LootRow{
		NewRow("Chaos Orb", "50"),
		NewRow("Mirror of Kalandra", "1"),
	}

	got := Compute(c, rows, internal.Investment{})

	assert.True(t, got.Loot.IsZero())
	assert.True(t, got.Gain.IsZero())
	assert.False(t, got.ROI.Valid)
	for _, rv := range got.Rows {
		assert.False(t, rv.Resolved, rv.Item)
		assert.True(t, rv.Total.IsZero())
	}
}

func TestComputeManualAndCaseInsensitiveLookup(t *testing.T) {
	c := mapPricer{"exalted orb": priced("Exalted Orb", util.FloatPtr(1))}
	rows := []internal.LootRow{
		NewRow("  EXALTED   orb ", "12"),
		NewManualRow("Waystone T15", "3", "2,5"),
		NewManualRow("junk", "abc", "7"),
	}

	got := Compute(c, rows, internal.Investment{Quantity: "", UnitCost: "5"})

	assert.Equal(t, "19.5", got.Loot.String())
	assert.True(t, got.Investment.IsZero())
	assert.Equal(t, "19.5", got.Gain.String())
	assert.True(t, got.Rows[2].Total.IsZero())
}

func TestComputeCommaIsDecimal(t *testing.T) {
	got := Compute(nil, []internal.LootRow{NewManualRow("Waystone T16", "2", "1,250")}, internal.Investment{Quantity: "4", UnitCost: "0,5"})
	assert.Equal(t, "2.5", got.Loot.String())
	assert.Equal(t, "2", got.Investment.String())
}

func TestComputeNilPricer(t *testing.T) {
	got := Compute(nil, []internal.LootRow{NewRow("Divine Orb", "2"), NewManualRow("x", "2", "3")}, internal.Investment{})
	assert.Equal(t, "6", got.Loot.String())
}

func TestComputeOrderIndependent(t *testing.T) {
	c := mapPricer{
		"divine orb":  priced("Divine Orb", util.FloatPtr(180.3)),
		"chaos orb":   priced("Chaos Orb", util.FloatPtr(0.07)),
		"regal orb":   priced("Regal Orb", util.FloatPtr(0.1)),
		"orb of alch": priced("Orb of Alch", util.FloatPtr(0.33)),
	}
	rows := []internal.LootRow{
		NewRow("Divine Orb", "3"),
		NewRow("Chaos Orb", "117"),
		NewRow("Regal Orb", "0.5"),
		NewRow("Orb of Alch", "41"),
		NewManualRow("Tablet", "4", "1.15"),
	}
	want := Compute(c, rows, internal.Investment{}).Loot

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]internal.LootRow(nil), rows...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Compute(c, shuffled, internal.Investment{}).Loot
		assert.True(t, want.Equal(got), "%s != %s", want, got)
	}
}

func TestComputeNegativeGain(t *testing.T) {
	got := Compute(mapPricer{}, nil, internal.Investment{Quantity: "4", UnitCost: "2.5"})
	assert.True(t, got.Gain.Equal(decimal.NewFromInt(-10)))
	assert.Equal(t, "-100", got.ROI.Decimal.String())
}
