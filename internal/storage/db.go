package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"farmcalc/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS feeds (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  hash TEXT NOT NULL UNIQUE,
  source TEXT NOT NULL,
  format TEXT NOT NULL,
  section TEXT,
  rawRef TEXT NOT NULL,
  fetchedAt TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  league TEXT,
  source TEXT,
  updatedAt TEXT,
  referenceUnit TEXT NOT NULL,
  secondaryUnit TEXT,
  secondaryRate REAL,
  rateSource TEXT,
  itemCount INTEGER NOT NULL,
  rejectedCount INTEGER NOT NULL,
  unresolvedCount INTEGER NOT NULL,
  conflictCount INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snapshot_feeds (
  snapshotId INTEGER NOT NULL,
  feedId INTEGER NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY(snapshotId, position),
  FOREIGN KEY(snapshotId) REFERENCES snapshots(id),
  FOREIGN KEY(feedId) REFERENCES feeds(id)
);

CREATE TABLE IF NOT EXISTS snapshot_items (
  snapshotId INTEGER NOT NULL,
  key TEXT NOT NULL,
  name TEXT NOT NULL,
  section TEXT,
  icon TEXT,
  quotedAmount REAL,
  quotedUnit TEXT,
  listedValue REAL,
  referenceValue REAL,
  inconsistent INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY(snapshotId, key),
  FOREIGN KEY(snapshotId) REFERENCES snapshots(id)
);
CREATE INDEX IF NOT EXISTS idx_snapshot_items_key ON snapshot_items(key);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertFeed registers a stored raw payload. Payloads are keyed by content
// hash, so refetching identical content only bumps fetchedAt.
func (d *DB) UpsertFeed(source, format, section, fetchedAt, hash, rawRef string) (internal.FeedRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO feeds (hash, source, format, section, rawRef, fetchedAt)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
  fetchedAt=excluded.fetchedAt,
  rawRef=excluded.rawRef
`, hash, source, format, section, rawRef, fetchedAt)
	if err != nil {
		return internal.FeedRow{}, err
	}

	row, err := d.GetFeedByHash(hash)
	if err != nil {
		return internal.FeedRow{}, err
	}
	if row == nil {
		return internal.FeedRow{}, errors.New("failed to upsert feed")
	}
	return *row, nil
}

func (d *DB) GetFeedByHash(hash string) (*internal.FeedRow, error) {
	var row internal.FeedRow
	err := d.conn.QueryRow(`
SELECT id, hash, source, format, COALESCE(section, ''), rawRef, fetchedAt
FROM feeds WHERE hash = ?
`, hash).Scan(&row.ID, &row.Hash, &row.Source, &row.Format, &row.Section, &row.RawRef, &row.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertSnapshot records a built catalog together with the feeds it was built
// from, in one transaction.
func (d *DB) InsertSnapshot(snap internal.SnapshotRow, feedIDs []int, items []internal.PricedItem) (int, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
INSERT INTO snapshots (
  league, source, updatedAt, referenceUnit, secondaryUnit, secondaryRate, rateSource,
  itemCount, rejectedCount, unresolvedCount, conflictCount
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, snap.League, snap.Source, snap.UpdatedAt, snap.ReferenceUnit, snap.SecondaryUnit, snap.SecondaryRate, snap.RateSource,
		snap.ItemCount, snap.RejectedCount, snap.UnresolvedCount, snap.ConflictCount)
	if err != nil {
		return 0, err
	}
	id64, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	id := int(id64)

	for pos, feedID := range feedIDs {
		if _, err := tx.Exec(`INSERT INTO snapshot_feeds (snapshotId, feedId, position) VALUES (?, ?, ?)`, id, feedID, pos); err != nil {
			return 0, err
		}
	}

	stmt, err := tx.Prepare(`
INSERT INTO snapshot_items (
  snapshotId, key, name, section, icon, quotedAmount, quotedUnit, listedValue, referenceValue, inconsistent
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.Exec(
			id, item.Key, item.Name, item.Section, item.Icon,
			item.QuotedAmount, item.QuotedUnit, item.ListedValue, item.ReferenceValue, item.Inconsistent,
		); err != nil {
			return 0, fmt.Errorf("insert snapshot item %q: %w", item.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const snapshotColumns = `
id, COALESCE(league, ''), COALESCE(source, ''), COALESCE(updatedAt, ''), referenceUnit,
COALESCE(secondaryUnit, ''), secondaryRate, COALESCE(rateSource, ''),
itemCount, rejectedCount, unresolvedCount, conflictCount, createdAt`

func scanSnapshot(scan func(dest ...any) error) (internal.SnapshotRow, error) {
	var row internal.SnapshotRow
	err := scan(
		&row.ID, &row.League, &row.Source, &row.UpdatedAt, &row.ReferenceUnit,
		&row.SecondaryUnit, &row.SecondaryRate, &row.RateSource,
		&row.ItemCount, &row.RejectedCount, &row.UnresolvedCount, &row.ConflictCount, &row.CreatedAt,
	)
	return row, err
}

func (d *DB) LatestSnapshot() (*internal.SnapshotRow, error) {
	row, err := scanSnapshot(d.conn.QueryRow(`SELECT ` + snapshotColumns + ` FROM snapshots ORDER BY id DESC LIMIT 1`).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListSnapshots(limit int) ([]internal.SnapshotRow, error) {
	rows, err := d.conn.Query(`SELECT `+snapshotColumns+` FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SnapshotRow
	for rows.Next() {
		row, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SnapshotFeeds(snapshotID int) ([]internal.FeedRow, error) {
	rows, err := d.conn.Query(`
SELECT f.id, f.hash, f.source, f.format, COALESCE(f.section, ''), f.rawRef, f.fetchedAt
FROM snapshot_feeds sf
JOIN feeds f ON f.id = sf.feedId
WHERE sf.snapshotId = ?
ORDER BY sf.position ASC
`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.FeedRow
	for rows.Next() {
		var row internal.FeedRow
		if err := rows.Scan(&row.ID, &row.Hash, &row.Source, &row.Format, &row.Section, &row.RawRef, &row.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SnapshotItems(snapshotID int) ([]internal.PricedItem, error) {
	rows, err := d.conn.Query(`
SELECT key, name, COALESCE(section, ''), COALESCE(icon, ''), quotedAmount, COALESCE(quotedUnit, ''),
       listedValue, referenceValue, inconsistent
FROM snapshot_items WHERE snapshotId = ?
ORDER BY rowid ASC
`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PricedItem
	for rows.Next() {
		var item internal.PricedItem
		if err := rows.Scan(
			&item.Key, &item.Name, &item.Section, &item.Icon, &item.QuotedAmount, &item.QuotedUnit,
			&item.ListedValue, &item.ReferenceValue, &item.Inconsistent,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ItemHistory lists an item's reference value across the most recent
// snapshots, newest first.
func (d *DB) ItemHistory(key string, limit int) ([]internal.HistoryPoint, error) {
	rows, err := d.conn.Query(`
SELECT s.id, s.createdAt, i.referenceValue
FROM snapshot_items i
JOIN snapshots s ON s.id = i.snapshotId
WHERE i.key = ?
ORDER BY s.id DESC
LIMIT ?
`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.HistoryPoint
	for rows.Next() {
		var p internal.HistoryPoint
		if err := rows.Scan(&p.SnapshotID, &p.CreatedAt, &p.ReferenceValue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
