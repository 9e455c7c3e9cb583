package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"farmcalc/internal/catalog"
	"farmcalc/internal/config"
	"farmcalc/internal/logging"
	"farmcalc/internal/storage"
)

type app struct {
	cfg    config.Config
	db     *storage.DB
	holder *catalog.Holder
	sync   *catalog.SyncService
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	cancel()
	must(err)
}

func execute(ctx context.Context, args []string) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "farmcalc",
		Short:         "Price normalization and loot calculator for the PoE2 economy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.open()
		},
	}

	root.AddCommand(
		pricesSyncCmd(a),
		pricesShowCmd(a),
		pricesHistoryCmd(a),
		pricesListenCmd(a),
		lootCalcCmd(a),
		exportXLSXCmd(a),
	)
	return root
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.db = db
	a.holder = &catalog.Holder{}
	a.sync = catalog.NewSyncService(a.holder, db, cfg)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// loadCatalog rebuilds the last synced catalog from stored feeds.
func (a *app) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	res, err := a.sync.Restore(ctx)
	if errors.Is(err, catalog.ErrNoSnapshot) {
		return nil, fmt.Errorf("no prices synced yet, run prices:sync first")
	}
	if err != nil {
		return nil, err
	}
	return res.Catalog, nil
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
