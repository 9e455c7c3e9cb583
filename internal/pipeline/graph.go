package pipeline

import (
	"math"
	"strings"

	"farmcalc/internal"
	"farmcalc/internal/util"
)

// conflictTolerance is the relative difference under which two derivations
// of the same value are considered equal.
const conflictTolerance = 1e-9

type GraphResult struct {
	Items     []internal.PricedItem
	Conflicts []internal.Conflict
	Seeded    bool
}

// edge reads "1 from = weight to".
type edge struct {
	from   int
	to     int
	weight float64
}

// ResolveReferenceValues derives every item's value in the reference unit by
// walking quote edges outward from the reference item, in both directions.
// The first value written for a node is final; edges that disagree with it
// are reported as conflicts and flag their declaring item.
func ResolveReferenceValues(items []internal.PricedItem, referenceUnit string) GraphResult {
	out := make([]internal.PricedItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].ReferenceValue = nil
		out[i].Inconsistent = false
	}

	index := make(map[string]int, len(out))
	for i, item := range out {
		index[item.Key] = i
	}

	ref, ok := index[util.NameKey(referenceUnit, "")]
	if !ok {
		return GraphResult{Items: out}
	}

	edges := buildEdges(out, index, ref)
	adjacent := make([][]int, len(out))
	for e, ed := range edges {
		adjacent[ed.from] = append(adjacent[ed.from], e)
		adjacent[ed.to] = append(adjacent[ed.to], e)
	}

	values := make([]float64, len(out))
	known := make([]bool, len(out))
	values[ref], known[ref] = 1, true

	var conflicts []internal.Conflict
	reported := make([]bool, len(edges))
	queue := []int{ref}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, e := range adjacent[node] {
			ed := edges[e]
			other, candidate := ed.to, values[node]/ed.weight
			if ed.to == node {
				other, candidate = ed.from, values[node]*ed.weight
			}

			if !known[other] {
				values[other], known[other] = candidate, true
				queue = append(queue, other)
				continue
			}

			implied := ed.weight * values[ed.to]
			if reported[e] || approxEqual(values[ed.from], implied) {
				continue
			}
			reported[e] = true
			out[ed.from].Inconsistent = true
			conflicts = append(conflicts, internal.Conflict{
				From:     out[ed.from].Name,
				To:       out[ed.to].Name,
				Weight:   ed.weight,
				Expected: implied,
				Actual:   values[ed.from],
			})
		}
	}

	for i := range out {
		if known[i] {
			out[i].ReferenceValue = util.FloatPtr(values[i])
		}
	}

	return GraphResult{Items: out, Conflicts: conflicts, Seeded: true}
}

// buildEdges lists usable edges in record order. A listed value is an edge to
// the reference item and precedes the item's own quote.
func buildEdges(items []internal.PricedItem, index map[string]int, ref int) []edge {
	edges := make([]edge, 0, len(items))
	for i, item := range items {
		if i != ref && item.ListedValue != nil && *item.ListedValue > 0 {
			edges = append(edges, edge{from: i, to: ref, weight: *item.ListedValue})
		}
		if item.QuotedAmount == nil || *item.QuotedAmount <= 0 || item.QuotedUnit == "" {
			continue
		}
		to, ok := index[strings.ToLower(item.QuotedUnit)]
		if !ok || to == i {
			continue
		}
		edges = append(edges, edge{from: i, to: to, weight: *item.QuotedAmount})
	}
	return edges
}

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= conflictTolerance*scale
}
