package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"farmcalc/internal/loot"
	"farmcalc/internal/pipeline"
)

func exportXLSXCmd(a *app) *cobra.Command {
	var out string
	in := &lootInputs{}
	cmd := &cobra.Command{
		Use:   "export:xlsx",
		Short: "Export the catalog, and loot totals when given, to a workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(out) == "" {
				return fmt.Errorf("--out is required")
			}
			c, err := a.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			wb := pipeline.Workbook{Items: c.Items(), Rates: c.Rates()}
			if in.statePath != "" || in.rowsXLSX != "" {
				st, err := in.load()
				if err != nil {
					return err
				}
				totals := loot.Compute(c, st.Rows, st.Investment)
				wb.Totals = &totals
			}

			if err := pipeline.ExportWorkbook(wb, out); err != nil {
				return err
			}
			fmt.Printf("exported %d items to %s\n", len(wb.Items), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output xlsx path")
	in.bind(cmd)
	return cmd
}
