package catalog

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmcalc/internal"
	"farmcalc/internal/config"
	"farmcalc/internal/loot"
	"farmcalc/internal/storage"
)

const feedJSON = `{
  "base": "Exalted Orb",
  "league": "standard",
  "lines": [
    {"section": "currency", "name": "Exalted Orb", "amount": null, "unit": null, "exaltedValue": 1},
    {"section": "currency", "name": "Divine Orb WIKI", "amount": 180, "unit": "Exalted Orb"},
    {"section": "currency", "name": "Chaos Orb", "amount": "0.07", "unit": "Exalted Orb"}
  ]
}`

type fakeConnector struct {
	raw     string
	err     error
	entered chan struct{}
	release chan struct{}
	waitCtx bool
}

func (f *fakeConnector) Name() string { return "fake" }

func (f *fakeConnector) Fetch(ctx context.Context) ([]internal.FetchedFeed, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return []internal.FetchedFeed{{
		Source:    "fake",
		Format:    internal.FormatPricesJSON,
		FetchedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Raw:       []byte(f.raw),
	}}, nil
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		RawFeedDir:       filepath.Join(t.TempDir(), "raw"),
		ReferenceUnit:    "Exalted Orb",
		SecondaryUnit:    "Divine Orb",
		IntermediateUnit: "Chaos Orb",
		NameNoiseSuffix:  "WIKI",
		NinjaMaxRows:     350,
	}
}

func TestSyncPublishesCatalog(t *testing.T) {
	holder := &Holder{}
	assert.False(t, holder.Loaded())
	_, ok := holder.Lookup("Divine Orb")
	assert.False(t, ok)

	svc := NewSyncService(holder, nil, testConfig(t))
	res, err := svc.Sync(context.Background(), &fakeConnector{raw: feedJSON})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Feeds)
	assert.Equal(t, 3, res.Catalog.Len())

	require.True(t, holder.Loaded())
	div, ok := holder.Lookup("divine orb")
	require.True(t, ok)
	assert.Equal(t, 180.0, *div.ReferenceValue)
}

func TestSyncFailureKeepsPreviousCatalog(t *testing.T) {
	holder := &Holder{}
	svc := NewSyncService(holder, nil, testConfig(t))
	_, err := svc.Sync(context.Background(), &fakeConnector{raw: feedJSON})
	require.NoError(t, err)
	before, _ := holder.Current()

	_, err = svc.Sync(context.Background(), &fakeConnector{raw: `{"lines": [`})
	assert.ErrorIs(t, err, ErrIngestFailed)

	_, err = svc.Sync(context.Background(), &fakeConnector{err: errors.New("network down")})
	assert.ErrorIs(t, err, ErrIngestFailed)

	after, _ := holder.Current()
	assert.Same(t, before, after)
}

func TestSyncEmptyBatchIsSuccess(t *testing.T) {
	holder := &Holder{}
	svc := NewSyncService(holder, nil, testConfig(t))

	res, err := svc.Sync(context.Background(), &fakeConnector{raw: `{"lines": []}`})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Catalog.Len())
	assert.True(t, holder.Loaded())
	assert.Nil(t, res.Catalog.Rates().SecondaryRate)
}

func TestSyncCancelledBySuccessor(t *testing.T) {
	holder := &Holder{}
	svc := NewSyncService(holder, nil, testConfig(t))

	slow := &fakeConnector{entered: make(chan struct{}), waitCtx: true}
	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(context.Background(), slow)
		done <- err
	}()
	<-slow.entered

	_, err := svc.Sync(context.Background(), &fakeConnector{raw: feedJSON})
	require.NoError(t, err)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, 3, mustCurrent(t, holder).Len())
}

func TestSyncLateFinisherDiscarded(t *testing.T) {
	holder := &Holder{}
	svc := NewSyncService(holder, nil, testConfig(t))

	late := &fakeConnector{raw: `{"lines": []}`, entered: make(chan struct{}), release: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(context.Background(), late)
		done <- err
	}()
	<-late.entered

	_, err := svc.Sync(context.Background(), &fakeConnector{raw: feedJSON})
	require.NoError(t, err)
	close(late.release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, 3, mustCurrent(t, holder).Len())
}

func TestSyncPersistsAndRestores(t *testing.T) {
	cfg := testConfig(t)
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	first := NewSyncService(&Holder{}, db, cfg)
	res, err := first.Sync(context.Background(), &fakeConnector{raw: feedJSON})
	require.NoError(t, err)
	require.NotZero(t, res.SnapshotID)

	snap, err := db.LatestSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ItemCount)
	assert.Equal(t, "graph", snap.RateSource)

	lastID, err := db.GetMetadata(metaLastSnapshot)
	require.NoError(t, err)
	require.NotNil(t, lastID)
	assert.Equal(t, strconv.Itoa(res.SnapshotID), *lastID)

	restoredHolder := &Holder{}
	restored, err := NewSyncService(restoredHolder, db, cfg).Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.SnapshotID, restored.SnapshotID)
	assert.Equal(t, res.Catalog.Items(), mustCurrent(t, restoredHolder).Items())
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	_, err := NewSyncService(&Holder{}, nil, testConfig(t)).Restore(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = NewSyncService(&Holder{}, db, testConfig(t)).Restore(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func mustCurrent(t *testing.T, h *Holder) *Catalog {
	t.Helper()
	c, ok := h.Current()
	require.True(t, ok)
	return c
}

func TestHolderPricesLoot(t *testing.T) {
	holder := &Holder{}
	_, err := NewSyncService(holder, nil, testConfig(t)).Sync(context.Background(), &fakeConnector{raw: feedJSON})
	require.NoError(t, err)

	totals := loot.Compute(holder, []internal.LootRow{loot.NewRow("Divine Orb", "1")}, internal.Investment{Quantity: "10", UnitCost: "2"})
	assert.Equal(t, "20", totals.Investment.String())
	assert.Equal(t, "180", totals.Loot.String())
	assert.Equal(t, "160", totals.Gain.String())
}

type failingMetadata struct {
	keys []string
}

func (f *failingMetadata) SetMetadata(key, _ string) error {
	f.keys = append(f.keys, key)
	return errors.New("disk full")
}

func TestRecordSyncLogsMetadataFailures(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	store := &failingMetadata{}
	recordSync(store, 7, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))

	assert.Equal(t, []string{metaLastSync, metaLastSnapshot}, store.keys)
	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"error":"disk full"`)
	assert.Contains(t, out, `"key":"prices.last_sync"`)
	assert.Contains(t, out, `"key":"prices.last_snapshot_id"`)
	assert.Contains(t, out, `"snapshot":7`)
}
