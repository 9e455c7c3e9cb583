package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"farmcalc/internal"
	"farmcalc/internal/connectors"
	"farmcalc/internal/format"
	"farmcalc/internal/listener"
	"farmcalc/internal/util"
)

func pricesSyncCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "prices:sync",
		Short: "Fetch a price feed and rebuild the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if source == "" {
				source = a.cfg.ListenerSource
			}
			conn, err := connectors.New(source, a.cfg)
			if err != nil {
				return err
			}
			res, err := a.sync.Sync(cmd.Context(), conn)
			if err != nil {
				return err
			}

			c := res.Catalog
			fmt.Printf("price sync done source=%s feeds=%d items=%d rejected=%d unresolved=%d conflicts=%d snapshot=%d\n",
				conn.Name(), res.Feeds, c.Len(), len(c.Rejected()), len(c.Unresolved()), len(c.Conflicts()), res.SnapshotID)
			printRates(c.Rates())
			for _, conflict := range c.Conflicts() {
				fmt.Printf("conflict: 1 %s = %g %s, path gives %g\n", conflict.From, conflict.Weight, conflict.To, conflict.Actual)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "file|url|ninja (default LISTENER_SOURCE)")
	return cmd
}

func pricesShowCmd(a *app) *cobra.Command {
	var (
		search  string
		section string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "prices:show",
		Short: "List catalog prices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			rates := c.Rates()
			printRates(rates)

			for _, item := range c.Search(search, section, limit) {
				value, compact := "?", "?"
				if item.ReferenceValue != nil {
					value = format.Smart(*item.ReferenceValue, rates).String()
					compact = format.Compact(*item.ReferenceValue)
				}
				flag := ""
				if item.Inconsistent {
					flag = " (inconsistent)"
				}
				fmt.Printf("%-40s %-20s %24s %10s%s\n", item.Name, item.Section, value, compact, flag)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "name substring")
	cmd.Flags().StringVar(&section, "section", "", "section key")
	cmd.Flags().IntVar(&limit, "limit", 300, "max rows")
	return cmd
}

func pricesHistoryCmd(a *app) *cobra.Command {
	var (
		name  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "prices:history",
		Short: "Show an item's value across stored snapshots",
		RunE: func(_ *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			points, err := a.db.ItemHistory(util.NameKey(name, a.cfg.NameNoiseSuffix), limit)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				return fmt.Errorf("no history for %q", name)
			}
			for _, p := range points {
				value := "?"
				if p.ReferenceValue != nil {
					value = format.Fixed2(*p.ReferenceValue)
				}
				fmt.Printf("snapshot=%d at=%s value=%s\n", p.SnapshotID, p.CreatedAt, value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "item name")
	cmd.Flags().IntVar(&limit, "limit", 20, "max snapshots")
	return cmd
}

func pricesListenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prices:listen",
		Short: "Refresh prices periodically until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listener.NewService(a.sync, a.cfg).Run(cmd.Context())
		},
	}
}

func printRates(rates internal.Rates) {
	rate := "unknown"
	if rates.SecondaryRate != nil {
		rate = format.Fixed2(*rates.SecondaryRate)
	}
	fmt.Printf("reference=%s secondary=%s rate=%s source=%s\n", rates.ReferenceUnit, rates.SecondaryUnit, rate, orUnknown(string(rates.RateSource)))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
