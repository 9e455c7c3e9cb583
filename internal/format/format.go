package format

import (
	"math"

	"github.com/shopspring/decimal"

	"farmcalc/internal"
)

// Display is an amount expressed in one unit. Value is unrounded; Text is
// Value rounded half away from zero to two places.
type Display struct {
	Value     float64
	Text      string
	Unit      string
	Icon      string
	Secondary bool
}

func (d Display) String() string {
	if d.Unit == "" {
		return d.Text
	}
	return d.Text + " " + d.Unit
}

type DualDisplay struct {
	Reference Display
	Secondary Display
}

// Smart shows a reference-unit value in the secondary unit once it is worth
// at least one secondary unit, and in the reference unit otherwise.
func Smart(value float64, rates internal.Rates) Display {
	v := finite(value)
	if rate, ok := secondaryRate(rates); ok && math.Abs(v) >= rate {
		return secondary(v/rate, rates)
	}
	return reference(v, rates)
}

// Dual shows both units. The secondary amount is 0 while the rate is unknown.
func Dual(value float64, rates internal.Rates) DualDisplay {
	v := finite(value)
	var sec float64
	if rate, ok := secondaryRate(rates); ok {
		sec = v / rate
	}
	return DualDisplay{
		Reference: reference(v, rates),
		Secondary: secondary(sec, rates),
	}
}

// Fixed2 rounds half away from zero to two places.
func Fixed2(value float64) string {
	return decimal.NewFromFloat(finite(value)).StringFixed(2)
}

// Compact renders large amounts the way economy tables print them:
// 2500 -> "2.5k", 1200000 -> "1.2m", 12.345 -> "12.35".
func Compact(value float64) string {
	d := decimal.NewFromFloat(finite(value))
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.New(1, 9)):
		return d.Shift(-9).Round(1).String() + "b"
	case abs.GreaterThanOrEqual(decimal.New(1, 6)):
		return d.Shift(-6).Round(1).String() + "m"
	case abs.GreaterThanOrEqual(decimal.New(1, 3)):
		return d.Shift(-3).Round(1).String() + "k"
	default:
		return d.Round(2).String()
	}
}

func reference(v float64, rates internal.Rates) Display {
	return Display{Value: v, Text: Fixed2(v), Unit: rates.ReferenceUnit, Icon: rates.ReferenceIcon}
}

func secondary(v float64, rates internal.Rates) Display {
	return Display{Value: v, Text: Fixed2(v), Unit: rates.SecondaryUnit, Icon: rates.SecondaryIcon, Secondary: true}
}

func secondaryRate(rates internal.Rates) (float64, bool) {
	if rates.SecondaryRate == nil {
		return 0, false
	}
	r := *rates.SecondaryRate
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
