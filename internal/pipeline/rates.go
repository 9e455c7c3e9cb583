package pipeline

import (
	"math"
	"strings"

	"farmcalc/internal"
	"farmcalc/internal/util"
)

type RateUnits struct {
	Reference    string
	Secondary    string
	Intermediate string
}

// ReferenceUnitFor prefers the unit named by the batch over the configured one.
func ReferenceUnitFor(meta internal.BatchMeta, fallback string) string {
	if name := util.CollapseSpaces(meta.Reference); name != "" {
		return name
	}
	return util.CollapseSpaces(fallback)
}

// ResolveRates picks the display cross-rates for a built item set. The
// secondary rate comes from the batch when it asserts a positive one, then
// from the secondary item's derived value; otherwise it stays unknown.
func ResolveRates(meta internal.BatchMeta, items []internal.PricedItem, units RateUnits) internal.Rates {
	byKey := make(map[string]internal.PricedItem, len(items))
	for _, item := range items {
		byKey[item.Key] = item
	}
	find := func(name string) (internal.PricedItem, bool) {
		item, ok := byKey[strings.ToLower(util.CollapseSpaces(name))]
		return item, ok
	}

	referenceName := ReferenceUnitFor(meta, units.Reference)
	rates := internal.Rates{
		ReferenceUnit:    referenceName,
		ReferenceIcon:    strings.TrimSpace(meta.ReferenceIcon),
		SecondaryUnit:    util.CollapseSpaces(units.Secondary),
		SecondaryIcon:    strings.TrimSpace(meta.SecondaryIcon),
		IntermediateUnit: util.CollapseSpaces(units.Intermediate),
	}

	if item, ok := find(referenceName); ok {
		rates.ReferenceUnit = item.Name
		if rates.ReferenceIcon == "" {
			rates.ReferenceIcon = item.Icon
		}
	}

	secondary, hasSecondary := find(units.Secondary)
	if hasSecondary {
		rates.SecondaryUnit = secondary.Name
		if rates.SecondaryIcon == "" {
			rates.SecondaryIcon = secondary.Icon
		}
	}

	switch {
	case positive(meta.SecondaryRate):
		rates.SecondaryRate = util.FloatPtr(*meta.SecondaryRate)
		rates.RateSource = internal.RateFromBatch
	case hasSecondary && positive(secondary.ReferenceValue):
		rates.SecondaryRate = util.FloatPtr(*secondary.ReferenceValue)
		rates.RateSource = internal.RateFromGraph
	default:
		rates.RateSource = internal.RateUnknown
	}

	if units.Intermediate != "" {
		if item, ok := find(units.Intermediate); ok {
			rates.IntermediateUnit = item.Name
			if positive(item.ReferenceValue) {
				rates.IntermediateRate = util.FloatPtr(*item.ReferenceValue)
			}
		}
	}

	return rates
}

func positive(v *float64) bool {
	return v != nil && *v > 0 && !math.IsInf(*v, 0) && !math.IsNaN(*v)
}
