package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	compactPattern   = regexp.MustCompile(`^([+-]?)(\d[\d\s.,]*?)\s*([kmb]?)$`)
	exponentPattern  = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?e[+-]?\d+$`)
	spacedThousands  = regexp.MustCompile(`^[1-9]\d{0,2}(?:\s\d{3})+(?:[.,]\d+)?$`)
	leadingNumberTok = regexp.MustCompile(`[+-]?\d[\d.,]*\s*[kKmMbB]?\b`)
	whitespace       = regexp.MustCompile(`\s`)
)

// ParseCompactNumber parses price tokens as they appear on economy pages:
// "180", "0.02", "1,5", "1 000", "2.5k", "1.2m", and JSON exponent numbers
// such as "5e-7". A comma is always a decimal separator. The result is always
// finite.
func ParseCompactNumber(input string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(input, "\u00A0", " ")))
	if s == "" {
		return 0, false
	}

	if exponentPattern.MatchString(s) {
		return parseExponent(s)
	}

	m := compactPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	norm := normalizeNumericToken(strings.TrimSpace(m[2]))
	n, err := strconv.ParseFloat(norm, 64)
	if err != nil {
		return 0, false
	}

	switch m[3] {
	case "k":
		n *= 1e3
	case "m":
		n *= 1e6
	case "b":
		n *= 1e9
	}
	if m[1] == "-" {
		n = -n
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// CoerceNumber is ParseCompactNumber with a zero fallback, for form fields.
func CoerceNumber(input string) float64 {
	n, ok := ParseCompactNumber(input)
	if !ok {
		return 0
	}
	return n
}

// FirstNumberToken returns the first numeric token of a cell text, suffix
// included ("Mirror 2.5k 1.0" -> "2.5k").
func FirstNumberToken(text string) string {
	return strings.TrimSpace(leadingNumberTok.FindString(text))
}

func parseExponent(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func normalizeNumericToken(token string) string {
	compact := token
	if spacedThousands.MatchString(compact) {
		compact = whitespace.ReplaceAllString(compact, "")
	}
	return strings.ReplaceAll(compact, ",", ".")
}

func FloatPtr(v float64) *float64 {
	return &v
}

func StringPtr(v string) *string {
	return &v
}
