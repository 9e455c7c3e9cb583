package pipeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmcalc/internal"
)

func item(name string, amount *float64, unit string) internal.PricedItem {
	raw := internal.RawRecord{Name: name, Unit: unit}
	it, _ := NormalizeRecord(raw, wiki)
	it.QuotedAmount = amount
	return it
}

func valueOf(t *testing.T, items []internal.PricedItem, key string) *float64 {
	t.Helper()
	for _, it := range items {
		if it.Key == key {
			return it.ReferenceValue
		}
	}
	t.Fatalf("item %q not found", key)
	return nil
}

func TestResolveDivineFromReference(t *testing.T) {
	ex := item("Exalted Orb", nil, "")
	ex.ListedValue = ptr(1)
	items := []internal.PricedItem{ex, item("Divine Orb", ptr(180), "Exalted Orb")}

	res := ResolveReferenceValues(items, "Exalted Orb")

	require.True(t, res.Seeded)
	assert.Equal(t, 1.0, *valueOf(t, res.Items, "exalted orb"))
	assert.Equal(t, 180.0, *valueOf(t, res.Items, "divine orb"))
	assert.Empty(t, res.Conflicts)
}

func TestResolveWithoutReferenceLeavesNil(t *testing.T) {
	items := []internal.PricedItem{item("Chaos Orb", ptr(0.02), "Exalted Orb")}

	res := ResolveReferenceValues(items, "Exalted Orb")

	assert.False(t, res.Seeded)
	assert.Nil(t, valueOf(t, res.Items, "chaos orb"))
}

func TestResolvePathProductInBothDirections(t *testing.T) {
	items := []internal.PricedItem{
		item("A", ptr(2), "B"),
		item("B", ptr(3), "C"),
		item("C", ptr(5), "Exalted Orb"),
		item("Exalted Orb", ptr(0.5), "D"),
		item("D", nil, ""),
		item("E", ptr(4), "D"),
	}

	res := ResolveReferenceValues(items, "exalted orb")

	assert.InDelta(t, 30, *valueOf(t, res.Items, "a"), 1e-12)
	assert.InDelta(t, 15, *valueOf(t, res.Items, "b"), 1e-12)
	assert.InDelta(t, 5, *valueOf(t, res.Items, "c"), 1e-12)
	assert.InDelta(t, 2, *valueOf(t, res.Items, "d"), 1e-12)
	assert.InDelta(t, 8, *valueOf(t, res.Items, "e"), 1e-12)
	assert.Equal(t, 1.0, *valueOf(t, res.Items, "exalted orb"))
}

func TestResolveIndependentOfRecordOrder(t *testing.T) {
	base := []internal.PricedItem{
		item("Exalted Orb", nil, ""),
		item("Divine Orb", ptr(180), "Exalted Orb"),
		item("Mirror", ptr(40), "Divine Orb"),
		item("Chaos Orb", ptr(0.07), "Exalted Orb"),
		item("Fragment", ptr(12), "Chaos Orb"),
		item("Orphan", ptr(3), "Nowhere"),
	}
	want := ResolveReferenceValues(base, "Exalted Orb")

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]internal.PricedItem(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := ResolveReferenceValues(shuffled, "Exalted Orb")
		for _, it := range want.Items {
			expected := it.ReferenceValue
			actual := valueOf(t, got.Items, it.Key)
			if expected == nil {
				assert.Nil(t, actual, it.Key)
				continue
			}
			require.NotNil(t, actual, it.Key)
			assert.InDelta(t, *expected, *actual, 1e-9, it.Key)
		}
	}
	assert.InDelta(t, 7200, *valueOf(t, want.Items, "mirror"), 1e-9)
	assert.InDelta(t, 0.84, *valueOf(t, want.Items, "fragment"), 1e-9)
}

func TestResolveSkipsUnusableEdges(t *testing.T) {
	items := []internal.PricedItem{
		item("Exalted Orb", nil, ""),
		item("Zero", ptr(0), "Exalted Orb"),
		item("Self", ptr(2), "Self"),
		item("Unknown", ptr(2), "Not Listed"),
		item("NoAmount", nil, "Exalted Orb"),
	}

	res := ResolveReferenceValues(items, "Exalted Orb")

	for _, key := range []string{"zero", "self", "unknown", "noamount"} {
		assert.Nil(t, valueOf(t, res.Items, key), key)
	}
}

func TestResolveInconsistentCycleKeepsFirstValue(t *testing.T) {
	a := item("A", ptr(3), "B")
	a.ListedValue = ptr(10)
	items := []internal.PricedItem{
		a,
		item("B", ptr(2), "Exalted Orb"),
		item("Exalted Orb", nil, ""),
	}

	res := ResolveReferenceValues(items, "Exalted Orb")

	assert.Equal(t, 10.0, *valueOf(t, res.Items, "a"))
	assert.Equal(t, 2.0, *valueOf(t, res.Items, "b"))
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, internal.Conflict{From: "A", To: "B", Weight: 3, Expected: 6, Actual: 10}, res.Conflicts[0])
	assert.True(t, res.Items[0].Inconsistent)
	assert.False(t, res.Items[1].Inconsistent)
}

func TestResolveReferenceStaysOne(t *testing.T) {
	items := []internal.PricedItem{
		item("Exalted Orb", ptr(0.01), "Divine Orb"),
		item("Divine Orb", ptr(180), "Exalted Orb"),
	}

	res := ResolveReferenceValues(items, "Exalted Orb")

	assert.Equal(t, 1.0, *valueOf(t, res.Items, "exalted orb"))
	assert.Equal(t, 100.0, *valueOf(t, res.Items, "divine orb"))
	require.Len(t, res.Conflicts, 1)
	assert.True(t, res.Items[1].Inconsistent)
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	items := []internal.PricedItem{item("Exalted Orb", nil, ""), item("Divine Orb", ptr(180), "Exalted Orb")}
	items[1].ReferenceValue = ptr(1)

	ResolveReferenceValues(items, "Exalted Orb")

	assert.Equal(t, 1.0, *items[1].ReferenceValue)
	assert.Nil(t, items[0].ReferenceValue)
}
