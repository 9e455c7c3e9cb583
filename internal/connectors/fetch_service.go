package connectors

import (
	"context"

	"farmcalc/internal"
	"farmcalc/internal/storage"
)

type FetchService struct {
	db    *storage.DB
	store *FeedStoreService
}

type FetchResult struct {
	Feeds   []internal.FetchedFeed
	FeedIDs []int
}

func NewFetchService(db *storage.DB, rawFeedDir string) *FetchService {
	return &FetchService{
		db:    db,
		store: NewFeedStoreService(db, rawFeedDir),
	}
}

func (s *FetchService) Store() *FeedStoreService {
	return s.store
}

// FetchAndStore runs the connector and registers every payload it returned.
func (s *FetchService) FetchAndStore(ctx context.Context, connector FeedConnector) (FetchResult, error) {
	feeds, err := connector.Fetch(ctx)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Feeds: feeds, FeedIDs: make([]int, 0, len(feeds))}
	for _, feed := range feeds {
		row, err := s.store.Store(feed)
		if err != nil {
			return FetchResult{}, err
		}
		result.FeedIDs = append(result.FeedIDs, row.ID)
	}

	return result, nil
}

// LoadSnapshotFeeds reads back the payloads a stored snapshot was built from.
func (s *FetchService) LoadSnapshotFeeds(snapshotID int) ([]internal.FetchedFeed, error) {
	rows, err := s.db.SnapshotFeeds(snapshotID)
	if err != nil {
		return nil, err
	}
	out := make([]internal.FetchedFeed, 0, len(rows))
	for _, row := range rows {
		feed, err := s.store.Load(row)
		if err != nil {
			return nil, err
		}
		out = append(out, feed)
	}
	return out, nil
}
