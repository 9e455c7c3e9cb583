package catalog

import (
	"sort"
	"strings"

	"farmcalc/internal"
	"farmcalc/internal/pipeline"
	"farmcalc/internal/util"
)

type BuildOptions struct {
	NoiseSuffix string
	Units       pipeline.RateUnits
}

// Catalog is one immutable price snapshot. It is built in full from a batch
// and never modified afterwards; accessors return copies.
type Catalog struct {
	items     []internal.PricedItem
	byKey     map[string]int
	sections  []string
	tokens    map[string]map[int]struct{}
	rates     internal.Rates
	meta      internal.BatchMeta
	rejected  []internal.RejectedRecord
	conflicts []internal.Conflict
	noise     string
}

// Build runs a batch through normalization, value resolution and rate
// resolution.
func Build(batch internal.RawBatch, opts BuildOptions) *Catalog {
	normalized := pipeline.NormalizeRecords(batch.Records, pipeline.NormalizeOptions{NoiseSuffix: opts.NoiseSuffix})
	reference := pipeline.ReferenceUnitFor(batch.Meta, opts.Units.Reference)
	graph := pipeline.ResolveReferenceValues(normalized.Accepted, reference)

	units := opts.Units
	units.Reference = reference
	rates := pipeline.ResolveRates(batch.Meta, graph.Items, units)

	return newCatalog(graph.Items, rates, batch.Meta, normalized.Rejected, graph.Conflicts, opts.NoiseSuffix)
}

func newCatalog(items []internal.PricedItem, rates internal.Rates, meta internal.BatchMeta,
	rejected []internal.RejectedRecord, conflicts []internal.Conflict, noise string) *Catalog {
	c := &Catalog{
		items:     items,
		byKey:     make(map[string]int, len(items)),
		tokens:    map[string]map[int]struct{}{},
		rates:     rates,
		meta:      meta,
		rejected:  rejected,
		conflicts: conflicts,
		noise:     noise,
	}

	seenSection := map[string]struct{}{}
	for i, item := range items {
		c.byKey[item.Key] = i
		if _, ok := seenSection[item.Section]; !ok && item.Section != "" {
			seenSection[item.Section] = struct{}{}
			c.sections = append(c.sections, item.Section)
		}
		for _, token := range util.Tokenize(item.Name) {
			if _, ok := c.tokens[token]; !ok {
				c.tokens[token] = map[int]struct{}{}
			}
			c.tokens[token][i] = struct{}{}
		}
	}
	return c
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Lookup finds an item by name, ignoring case, spacing and the noise suffix.
func (c *Catalog) Lookup(name string) (internal.PricedItem, bool) {
	if c == nil {
		return internal.PricedItem{}, false
	}
	i, ok := c.byKey[util.NameKey(name, c.noise)]
	if !ok {
		return internal.PricedItem{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Items() []internal.PricedItem {
	return append([]internal.PricedItem(nil), c.items...)
}

func (c *Catalog) Rates() internal.Rates { return c.rates }

func (c *Catalog) Meta() internal.BatchMeta { return c.meta }

func (c *Catalog) Rejected() []internal.RejectedRecord {
	return append([]internal.RejectedRecord(nil), c.rejected...)
}

func (c *Catalog) Conflicts() []internal.Conflict {
	return append([]internal.Conflict(nil), c.conflicts...)
}

// Sections lists section names in first-seen order.
func (c *Catalog) Sections() []string {
	return append([]string(nil), c.sections...)
}

// Unresolved lists items whose reference value could not be derived.
func (c *Catalog) Unresolved() []internal.PricedItem {
	var out []internal.PricedItem
	for _, item := range c.items {
		if item.ReferenceValue == nil {
			out = append(out, item)
		}
	}
	return out
}

// Names is the autocomplete list, in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item.Name)
	}
	return out
}

// Search returns items whose name contains query, optionally restricted to
// one section. A limit <= 0 means no limit.
func (c *Catalog) Search(query, section string, limit int) []internal.PricedItem {
	q := strings.ToLower(util.CollapseSpaces(query))
	section = util.CollapseSpaces(section)

	out := []internal.PricedItem{}
	for _, item := range c.items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if section != "" && !strings.EqualFold(item.Section, section) {
			continue
		}
		if q != "" && !strings.Contains(item.Key, q) {
			continue
		}
		out = append(out, item)
	}
	return out
}

type Suggestion struct {
	Name  string
	Score float64
}

const minSuggestScore = 0.35

// Suggest ranks catalog names close to an unknown name, best first.
func (c *Catalog) Suggest(name string, limit int) []Suggestion {
	candidates := map[int]struct{}{}
	for _, token := range util.Tokenize(name) {
		for i := range c.tokens[token] {
			candidates[i] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		for i := range c.items {
			candidates[i] = struct{}{}
		}
	}

	out := make([]Suggestion, 0, len(candidates))
	for i := range candidates {
		score := util.NameScore(name, c.items[i].Name)
		if score < minSuggestScore {
			continue
		}
		out = append(out, Suggestion{Name: c.items[i].Name, Score: score})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score == out[b].Score {
			return out[a].Name < out[b].Name
		}
		return out[a].Score > out[b].Score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
