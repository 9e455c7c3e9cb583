package pipeline

import (
	"strings"

	"farmcalc/internal"
	"farmcalc/internal/util"
)

type NormalizeOptions struct {
	NoiseSuffix string
}

type NormalizeResult struct {
	Accepted []internal.PricedItem
	Rejected []internal.RejectedRecord
}

// NormalizeRecord cleans one scraped record. A non-empty reason means the
// record must be dropped; it is never an error.
func NormalizeRecord(raw internal.RawRecord, opts NormalizeOptions) (internal.PricedItem, internal.RejectReason) {
	name := util.CleanName(raw.Name, opts.NoiseSuffix)
	if name == "" {
		return internal.PricedItem{}, internal.RejectEmptyName
	}

	amount, ok := coerceQuantity(raw.Amount)
	if !ok {
		return internal.PricedItem{}, internal.RejectBadAmount
	}
	listed, ok := coerceQuantity(raw.ListedValue)
	if !ok {
		return internal.PricedItem{}, internal.RejectBadListedValue
	}

	return internal.PricedItem{
		Key:          strings.ToLower(name),
		Name:         name,
		Section:      util.CollapseSpaces(raw.Section),
		Icon:         strings.TrimSpace(raw.Icon),
		QuotedAmount: amount,
		QuotedUnit:   util.CleanName(raw.Unit, opts.NoiseSuffix),
		ListedValue:  listed,
	}, internal.RejectNone
}

// NormalizeRecords validates and filters a batch. Duplicate keys keep the
// position of their first occurrence and the fields of the last one.
func NormalizeRecords(records []internal.RawRecord, opts NormalizeOptions) NormalizeResult {
	res := NormalizeResult{Accepted: make([]internal.PricedItem, 0, len(records))}
	position := map[string]int{}

	for i, raw := range records {
		item, reason := NormalizeRecord(raw, opts)
		if reason != internal.RejectNone {
			res.Rejected = append(res.Rejected, internal.RejectedRecord{Index: i, Record: raw, Reason: reason})
			continue
		}
		if at, seen := position[item.Key]; seen {
			res.Accepted[at] = item
			continue
		}
		position[item.Key] = len(res.Accepted)
		res.Accepted = append(res.Accepted, item)
	}

	return res
}

// coerceQuantity maps an absent token to nil and rejects tokens that are
// present but not a finite non-negative number.
func coerceQuantity(token string) (*float64, bool) {
	if strings.TrimSpace(token) == "" {
		return nil, true
	}
	n, ok := util.ParseCompactNumber(token)
	if !ok || n < 0 {
		return nil, false
	}
	return util.FloatPtr(n), true
}
