package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"farmcalc/internal"
	"farmcalc/internal/config"
	"farmcalc/internal/connectors"
	"farmcalc/internal/pipeline"
	"farmcalc/internal/storage"
)

var (
	ErrIngestFailed = errors.New("price ingestion failed")
	ErrSuperseded   = errors.New("price sync superseded by a newer sync")
	ErrNoSnapshot   = errors.New("no stored price snapshot")
)

const (
	metaLastSync     = "prices.last_sync"
	metaLastSnapshot = "prices.last_snapshot_id"
)

// Holder publishes the current catalog. Readers always see a complete
// snapshot; before the first successful ingestion it is unloaded.
type Holder struct {
	current atomic.Pointer[Catalog]
}

func (h *Holder) Current() (*Catalog, bool) {
	c := h.current.Load()
	return c, c != nil
}

func (h *Holder) Loaded() bool {
	return h.current.Load() != nil
}

func (h *Holder) Store(c *Catalog) {
	h.current.Store(c)
}

// Lookup resolves against whichever catalog is current.
func (h *Holder) Lookup(name string) (internal.PricedItem, bool) {
	return h.current.Load().Lookup(name)
}

type SyncResult struct {
	Catalog    *Catalog
	Feeds      int
	SnapshotID int
}

// SyncService fetches, decodes and builds a catalog, then swaps it into the
// holder. Only the most recently started sync may publish.
type SyncService struct {
	holder  *Holder
	db      *storage.DB
	fetch   *connectors.FetchService
	build   BuildOptions
	extract pipeline.ExtractOptions

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSyncService wires the service. db may be nil, in which case payloads
// and snapshots are not persisted.
func NewSyncService(holder *Holder, db *storage.DB, cfg config.Config) *SyncService {
	s := &SyncService{
		holder: holder,
		db:     db,
		build: BuildOptions{
			NoiseSuffix: cfg.NameNoiseSuffix,
			Units: pipeline.RateUnits{
				Reference:    cfg.ReferenceUnit,
				Secondary:    cfg.SecondaryUnit,
				Intermediate: cfg.IntermediateUnit,
			},
		},
		extract: pipeline.ExtractOptions{
			BaseURL: cfg.NinjaBaseURL,
			MaxRows: cfg.NinjaMaxRows,
			Units:   []string{cfg.SecondaryUnit, cfg.IntermediateUnit, cfg.ReferenceUnit},
		},
	}
	if db != nil {
		s.fetch = connectors.NewFetchService(db, cfg.RawFeedDir)
	}
	return s
}

func (s *SyncService) Holder() *Holder {
	return s.holder
}

// Sync ingests one batch from the connector. On any failure the current
// catalog is left untouched and the error wraps ErrIngestFailed. A sync
// overtaken by a newer one returns ErrSuperseded.
func (s *SyncService) Sync(ctx context.Context, connector connectors.FeedConnector) (SyncResult, error) {
	ctx, gen := s.begin(ctx)
	defer s.finish(gen)
	started := time.Now()

	var (
		feeds   []internal.FetchedFeed
		feedIDs []int
		err     error
	)
	if s.fetch != nil {
		var res connectors.FetchResult
		res, err = s.fetch.FetchAndStore(ctx, connector)
		feeds, feedIDs = res.Feeds, res.FeedIDs
	} else {
		feeds, err = connector.Fetch(ctx)
	}
	if err != nil {
		return SyncResult{}, s.fail(gen, connector.Name(), "fetch", err)
	}

	batch, err := pipeline.DecodeFeeds(feeds, s.extract)
	if err != nil {
		return SyncResult{}, s.fail(gen, connector.Name(), "decode", err)
	}
	cat := Build(batch, s.build)

	if !s.publish(gen, cat) {
		return SyncResult{}, ErrSuperseded
	}

	result := SyncResult{Catalog: cat, Feeds: len(feeds)}
	if s.db != nil {
		id, err := s.persist(cat, feedIDs)
		if err != nil {
			log.Warn().Err(err).Msg("price snapshot not persisted")
		}
		result.SnapshotID = id
	}

	log.Info().
		Str("source", connector.Name()).
		Int("feeds", len(feeds)).
		Int("items", cat.Len()).
		Int("rejected", len(cat.rejected)).
		Int("unresolved", len(cat.Unresolved())).
		Int("conflicts", len(cat.conflicts)).
		Str("rate_source", string(cat.rates.RateSource)).
		Dur("took", time.Since(started)).
		Msg("price catalog updated")
	return result, nil
}

// Restore rebuilds the latest stored snapshot from its raw payloads.
func (s *SyncService) Restore(ctx context.Context) (SyncResult, error) {
	if s.db == nil {
		return SyncResult{}, ErrNoSnapshot
	}
	ctx, gen := s.begin(ctx)
	defer s.finish(gen)

	snap, err := s.db.LatestSnapshot()
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %w", ErrIngestFailed, err)
	}
	if snap == nil {
		return SyncResult{}, ErrNoSnapshot
	}

	feeds, err := s.fetch.LoadSnapshotFeeds(snap.ID)
	if err != nil {
		return SyncResult{}, s.fail(gen, "restore", "load", err)
	}
	if err := ctx.Err(); err != nil {
		return SyncResult{}, s.fail(gen, "restore", "load", err)
	}
	batch, err := pipeline.DecodeFeeds(feeds, s.extract)
	if err != nil {
		return SyncResult{}, s.fail(gen, "restore", "decode", err)
	}
	cat := Build(batch, s.build)
	if !s.publish(gen, cat) {
		return SyncResult{}, ErrSuperseded
	}

	log.Info().Int("snapshot", snap.ID).Int("items", cat.Len()).Msg("price catalog restored")
	return SyncResult{Catalog: cat, Feeds: len(feeds), SnapshotID: snap.ID}, nil
}

func (s *SyncService) begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.gen++
	s.cancel = cancel
	return ctx, s.gen
}

func (s *SyncService) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *SyncService) publish(gen uint64, cat *Catalog) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.holder.Store(cat)
	return true
}

func (s *SyncService) fail(gen uint64, source, stage string, err error) error {
	s.mu.Lock()
	superseded := gen != s.gen
	s.mu.Unlock()
	if superseded {
		return ErrSuperseded
	}
	log.Error().Err(err).Str("source", source).Str("stage", stage).Msg("price ingestion failed")
	return fmt.Errorf("%w: %s: %w", ErrIngestFailed, stage, err)
}

func (s *SyncService) persist(cat *Catalog, feedIDs []int) (int, error) {
	rates := cat.Rates()
	meta := cat.Meta()
	id, err := s.db.InsertSnapshot(internal.SnapshotRow{
		League:          meta.League,
		Source:          meta.Source,
		UpdatedAt:       meta.UpdatedAt,
		ReferenceUnit:   rates.ReferenceUnit,
		SecondaryUnit:   rates.SecondaryUnit,
		SecondaryRate:   rates.SecondaryRate,
		RateSource:      string(rates.RateSource),
		ItemCount:       cat.Len(),
		RejectedCount:   len(cat.rejected),
		UnresolvedCount: len(cat.Unresolved()),
		ConflictCount:   len(cat.conflicts),
	}, feedIDs, cat.items)
	if err != nil {
		return 0, err
	}
	recordSync(s.db, id, time.Now())
	return id, nil
}

type metadataStore interface {
	SetMetadata(key, value string) error
}

// recordSync stamps the last successful sync. The snapshot itself is already
// committed, so a failure here is only logged.
func recordSync(store metadataStore, snapshotID int, at time.Time) {
	entries := [][2]string{
		{metaLastSync, at.UTC().Format(time.RFC3339)},
		{metaLastSnapshot, strconv.Itoa(snapshotID)},
	}
	for _, kv := range entries {
		if err := store.SetMetadata(kv[0], kv[1]); err != nil {
			log.Warn().Err(err).Str("key", kv[0]).Int("snapshot", snapshotID).Msg("sync metadata not saved")
		}
	}
}
