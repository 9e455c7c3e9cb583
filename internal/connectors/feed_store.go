package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"farmcalc/internal"
	"farmcalc/internal/storage"
)

type FeedStoreService struct {
	db         *storage.DB
	rawFeedDir string
}

func NewFeedStoreService(db *storage.DB, rawFeedDir string) *FeedStoreService {
	return &FeedStoreService{db: db, rawFeedDir: rawFeedDir}
}

// Store writes the payload under its content hash and registers it.
func (s *FeedStoreService) Store(feed internal.FetchedFeed) (internal.FeedRow, error) {
	hashBytes := sha256.Sum256(feed.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawFeedDir, 0o755); err != nil {
		return internal.FeedRow{}, err
	}

	rawPath := filepath.Join(s.rawFeedDir, hash+extensionFor(feed.Format))
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, feed.Raw, 0o644); err != nil {
			return internal.FeedRow{}, err
		}
	}

	fetchedAt := feed.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	return s.db.UpsertFeed(feed.Source, string(feed.Format), feed.Section, fetchedAt.UTC().Format(time.RFC3339), hash, rawPath)
}

// Load reads a registered payload back from disk.
func (s *FeedStoreService) Load(row internal.FeedRow) (internal.FetchedFeed, error) {
	raw, err := os.ReadFile(row.RawRef)
	if err != nil {
		return internal.FetchedFeed{}, fmt.Errorf("read raw feed %s: %w", row.Hash, err)
	}
	fetchedAt, _ := time.Parse(time.RFC3339, row.FetchedAt)
	return internal.FetchedFeed{
		Source:    row.Source,
		Format:    internal.FeedFormat(row.Format),
		Section:   row.Section,
		FetchedAt: fetchedAt,
		Raw:       raw,
	}, nil
}

func extensionFor(format internal.FeedFormat) string {
	if format == internal.FormatEconomyHTML {
		return ".html"
	}
	return ".json"
}
