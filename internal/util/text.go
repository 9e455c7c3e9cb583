package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reQuotes = regexp.MustCompile(`["'` + "`" + `«»’]`)
	reSpaces = regexp.MustCompile(`\s+`)
)

func CollapseSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// CleanName collapses whitespace and strips a trailing noise marker
// (case-insensitive), e.g. "Divine Orb WIKI" -> "Divine Orb".
func CleanName(input, noise string) string {
	s := CollapseSpaces(input)
	noise = strings.TrimSpace(noise)
	if noise == "" {
		return s
	}
	if len(s) >= len(noise) && strings.EqualFold(s[len(s)-len(noise):], noise) {
		s = strings.TrimSpace(s[:len(s)-len(noise)])
	}
	return s
}

// NameKey is the catalog key for a name: cleaned and lower-cased.
func NameKey(input, noise string) string {
	return strings.ToLower(CleanName(input, noise))
}

// NormalizeForMatch folds a name to lower-case letters, digits and single
// spaces for fuzzy comparison.
func NormalizeForMatch(input string) string {
	s := strings.ToLower(input)
	s = reQuotes.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return CollapseSpaces(s)
}

func Tokenize(input string) []string {
	norm := NormalizeForMatch(input)
	if norm == "" {
		return nil
	}
	parts := strings.Split(norm, " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}

// NameScore blends bigram similarity with token overlap, weighted towards
// the bigram score.
func NameScore(query, candidate string) float64 {
	q := NormalizeForMatch(query)
	c := NormalizeForMatch(candidate)
	dice := DiceCoefficient(q, c)

	queryTokens := Tokenize(q)
	candidateTokens := Tokenize(c)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return dice
	}

	set := map[string]struct{}{}
	for _, t := range candidateTokens {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	tokenScore := float64(overlap) / float64(len(queryTokens))
	return 0.65*dice + 0.35*tokenScore
}
