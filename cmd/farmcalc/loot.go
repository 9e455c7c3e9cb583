package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"farmcalc/internal/catalog"
	"farmcalc/internal/format"
	"farmcalc/internal/loot"
)

type lootInputs struct {
	statePath string
	rowsXLSX  string
	quantity  string
	unitCost  string
}

func (in *lootInputs) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&in.statePath, "state", "", "saved calculator state (json)")
	cmd.Flags().StringVar(&in.rowsXLSX, "rows-xlsx", "", "loot rows workbook (item | qty | price)")
	cmd.Flags().StringVar(&in.quantity, "quantity", "", "investment quantity, e.g. maps run")
	cmd.Flags().StringVar(&in.unitCost, "unit-cost", "", "investment cost per unit")
}

func (in *lootInputs) load() (loot.State, error) {
	st := loot.State{}
	if in.statePath != "" {
		raw, err := os.ReadFile(in.statePath)
		if err != nil {
			return loot.State{}, err
		}
		if st, err = loot.DecodeState(raw); err != nil {
			return loot.State{}, err
		}
	}
	if in.rowsXLSX != "" {
		content, err := os.ReadFile(in.rowsXLSX)
		if err != nil {
			return loot.State{}, err
		}
		rows, err := loot.ReadRowsXLSX(content)
		if err != nil {
			return loot.State{}, err
		}
		st.Rows = append(st.Rows, rows...)
	}
	if in.quantity != "" {
		st.Investment.Quantity = in.quantity
	}
	if in.unitCost != "" {
		st.Investment.UnitCost = in.unitCost
	}
	return st, nil
}

func lootCalcCmd(a *app) *cobra.Command {
	in := &lootInputs{}
	cmd := &cobra.Command{
		Use:   "loot:calc",
		Short: "Compute investment, loot and gain against the current catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.statePath == "" && in.rowsXLSX == "" {
				return fmt.Errorf("--state or --rows-xlsx is required")
			}
			c, err := a.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			st, err := in.load()
			if err != nil {
				return err
			}

			totals := loot.Compute(c, st.Rows, st.Investment)
			printTotals(c, totals)
			return nil
		},
	}
	in.bind(cmd)
	return cmd
}

func printTotals(c *catalog.Catalog, t loot.Totals) {
	rates := c.Rates()
	for _, rv := range t.Rows {
		status := ""
		if !rv.Resolved {
			status = " (no price" + suggestionHint(c, rv.Item) + ")"
		}
		fmt.Printf("%-40s x%-8s @ %-10s = %s%s\n", rv.Item, rv.Quantity.String(), rv.Price.StringFixed(2),
			format.Smart(rv.Total.InexactFloat64(), rates).String(), status)
	}

	for _, line := range []struct {
		label string
		value float64
	}{
		{"investment", t.Investment.InexactFloat64()},
		{"loot", t.Loot.InexactFloat64()},
		{"gain", t.Gain.InexactFloat64()},
	} {
		dual := format.Dual(line.value, rates)
		fmt.Printf("%-10s %s / %s\n", line.label, dual.Reference.String(), dual.Secondary.String())
	}
	if t.ROI.Valid {
		fmt.Printf("roi        %s%%\n", t.ROI.Decimal.StringFixed(2))
	}
}

func suggestionHint(c *catalog.Catalog, name string) string {
	if _, ok := c.Lookup(name); ok {
		return ""
	}
	suggestions := c.Suggest(name, 3)
	if len(suggestions) == 0 {
		return ""
	}
	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		names = append(names, s.Name)
	}
	return ", did you mean " + strings.Join(names, " / ") + "?"
}
