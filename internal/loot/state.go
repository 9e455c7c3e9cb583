package loot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"farmcalc/internal"
)

var ErrMalformedState = errors.New("malformed loot state")

type State struct {
	Rows       []internal.LootRow
	Investment internal.Investment
}

// DecodeState reads the calculator's saved state. Numeric fields may be JSON
// numbers or strings; rows without a valid id get a fresh one.
func DecodeState(raw []byte) (State, error) {
	if !gjson.ValidBytes(raw) {
		return State{}, fmt.Errorf("%w: invalid json", ErrMalformedState)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return State{}, fmt.Errorf("%w: expected object", ErrMalformedState)
	}

	st := State{
		Investment: internal.Investment{
			Quantity: firstField(doc, "investment.quantity", "maps"),
			UnitCost: firstField(doc, "investment.unitCost", "costPerMap"),
		},
	}

	doc.Get("rows").ForEach(func(_, r gjson.Result) bool {
		row := internal.LootRow{
			ID:          rowID(field(r.Get("id"))),
			Item:        field(r.Get("item")),
			Quantity:    field(r.Get("qty")),
			Manual:      r.Get("manual").Bool(),
			ManualPrice: field(r.Get("price")),
		}
		if row.Item == "" && !row.Manual {
			return true
		}
		st.Rows = append(st.Rows, row)
		return true
	})

	return st, nil
}

// NewRow is a catalog-priced row with a fresh identity.
func NewRow(item, quantity string) internal.LootRow {
	return internal.LootRow{ID: uuid.New(), Item: item, Quantity: quantity}
}

// NewManualRow is a row priced by hand.
func NewManualRow(label, quantity, price string) internal.LootRow {
	return internal.LootRow{ID: uuid.New(), Item: label, Quantity: quantity, Manual: true, ManualPrice: price}
}

func rowID(s string) uuid.UUID {
	if id, err := uuid.Parse(s); err == nil {
		return id
	}
	return uuid.New()
}

func field(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return strings.TrimSpace(v.Str)
	default:
		return strings.TrimSpace(v.Raw)
	}
}

func firstField(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := field(doc.Get(p)); s != "" {
			return s
		}
	}
	return ""
}
