package listener

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"farmcalc/internal/catalog"
	"farmcalc/internal/config"
	"farmcalc/internal/connectors"
	"farmcalc/internal/pipeline"
)

// Service refreshes the price catalog on a fixed interval.
type Service struct {
	sync         *catalog.SyncService
	cfg          config.Config
	newConnector func() (connectors.FeedConnector, error)
	now          func() time.Time
}

func NewService(sync *catalog.SyncService, cfg config.Config) *Service {
	return &Service{
		sync: sync,
		cfg:  cfg,
		newConnector: func() (connectors.FeedConnector, error) {
			return connectors.New(cfg.ListenerSource, cfg)
		},
		now: time.Now,
	}
}

// Run restores the last stored snapshot, then syncs until ctx is done. A
// failed cycle is logged and the current catalog stays in place.
func (s *Service) Run(ctx context.Context) error {
	if _, err := s.sync.Restore(ctx); err != nil && !errors.Is(err, catalog.ErrNoSnapshot) {
		log.Warn().Err(err).Msg("price snapshot restore failed")
	}

	interval := time.Duration(s.cfg.ListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	for {
		if err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) error {
	conn, err := s.newConnector()
	if err != nil {
		return err
	}

	res, err := s.sync.Sync(ctx, conn)
	if err != nil {
		return err
	}

	if s.cfg.ListenerAutoExport {
		if err := s.exportCatalog(res.Catalog); err != nil {
			return err
		}
	}

	log.Info().
		Str("source", conn.Name()).
		Int("feeds", res.Feeds).
		Int("items", res.Catalog.Len()).
		Int("snapshot", res.SnapshotID).
		Msg("listener cycle done")
	return nil
}

func (s *Service) exportCatalog(c *catalog.Catalog) error {
	filename := fmt.Sprintf("prices_%s.xlsx", s.now().UTC().Format("20060102T150405Z"))
	outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
	return pipeline.ExportWorkbook(pipeline.Workbook{Items: c.Items(), Rates: c.Rates()}, outputPath)
}
