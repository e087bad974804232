package search

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zackees/vids-db/app/database"
	"github.com/zackees/vids-db/app/model"
)

// DefaultLimit caps search results when the caller does not choose one.
const DefaultLimit = 40

// schema holds the documents table plus the FTS5 index over the folded
// text columns, kept in sync by triggers. The documents table is a
// locator store: URL identity plus the few display fields a search hit
// carries. Full records live in the relational store.
const schema = `
CREATE TABLE IF NOT EXISTS search_docs (
    id             INTEGER PRIMARY KEY,
    url            TEXT NOT NULL UNIQUE,
    channel_name   TEXT NOT NULL,
    title          TEXT NOT NULL,
    title_folded   TEXT NOT NULL,
    channel_folded TEXT NOT NULL,
    published_at   INTEGER NOT NULL,
    views          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_docs_channel ON search_docs(channel_name);
CREATE INDEX IF NOT EXISTS idx_search_docs_published ON search_docs(published_at DESC);

CREATE VIRTUAL TABLE IF NOT EXISTS search_fts USING fts5(
    title_folded, channel_folded, content='search_docs', content_rowid='id',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS search_docs_ai AFTER INSERT ON search_docs BEGIN
    INSERT INTO search_fts(rowid, title_folded, channel_folded)
    VALUES (new.id, new.title_folded, new.channel_folded);
END;
CREATE TRIGGER IF NOT EXISTS search_docs_ad AFTER DELETE ON search_docs BEGIN
    INSERT INTO search_fts(search_fts, rowid, title_folded, channel_folded)
    VALUES ('delete', old.id, old.title_folded, old.channel_folded);
END;
CREATE TRIGGER IF NOT EXISTS search_docs_au AFTER UPDATE ON search_docs BEGIN
    INSERT INTO search_fts(search_fts, rowid, title_folded, channel_folded)
    VALUES ('delete', old.id, old.title_folded, old.channel_folded);
    INSERT INTO search_fts(rowid, title_folded, channel_folded)
    VALUES (new.id, new.title_folded, new.channel_folded);
END;
`

// Hit is a search result locator: enough to identify the record and
// render a result line, not the full record.
type Hit struct {
	URL           string
	ChannelName   string
	Title         string
	DatePublished time.Time
	Views         int64
}

// Index is the full-text search store, backed by its own sqlite file.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the search index at path.
// An open failure is fatal, not retried.
func Open(path string) (*Index, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: mkdir %s: %v", database.ErrUnavailable, filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite", path+database.OpenPragmas)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", database.ErrUnavailable, path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply search schema: %v", database.ErrUnavailable, err)
	}

	return &Index{db: db}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// IndexVideos upserts a batch of records into the index, keyed by URL.
// The batch is first de-duplicated by URL (last occurrence wins) and
// then committed as one transaction, so a concurrent search sees either
// the whole batch or none of it. Indexing the same URL again replaces
// its document; it never creates a second one.
func (ix *Index) IndexVideos(videos []model.Video) error {
	videos = dedupeByURL(videos)
	if len(videos) == 0 {
		return nil
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index batch: %w", err)
	}
	defer tx.Rollback()

	for _, vid := range videos {
		_, err := tx.Exec(`
			INSERT INTO search_docs (url, channel_name, title, title_folded, channel_folded, published_at, views)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (url) DO UPDATE SET
				channel_name   = excluded.channel_name,
				title          = excluded.title,
				title_folded   = excluded.title_folded,
				channel_folded = excluded.channel_folded,
				published_at   = excluded.published_at,
				views          = excluded.views
		`, vid.URL, vid.ChannelName, vid.Title, foldText(vid.Title), foldText(vid.ChannelName),
			vid.DatePublished.UnixMilli(), vid.Views)
		if err != nil {
			return fmt.Errorf("failed to index video %s: %w", vid.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index batch: %w", err)
	}
	return nil
}

// SearchTitle matches query terms against video titles, most relevant
// first, capped at limit (DefaultLimit when limit <= 0).
func (ix *Index) SearchTitle(query string, limit int) ([]Hit, error) {
	return ix.search(query, "title_folded", limit)
}

// SearchChannel matches query terms against channel names.
func (ix *Index) SearchChannel(query string, limit int) ([]Hit, error) {
	return ix.search(query, "channel_folded", limit)
}

func (ix *Index) search(raw, column string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	q, err := ParseQuery(raw, time.Now())
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if len(q.Terms) == 0 {
		// Pure date query, no text matching needed.
		rows, err = ix.db.Query(`
			SELECT url, channel_name, title, published_at, views
			FROM search_docs
			WHERE published_at BETWEEN ? AND ?
			ORDER BY published_at DESC
			LIMIT ?`, q.Dates.Start.UnixMilli(), q.Dates.End.UnixMilli(), limit)
	} else if q.Dates != nil {
		rows, err = ix.db.Query(`
			SELECT d.url, d.channel_name, d.title, d.published_at, d.views
			FROM search_fts f
			JOIN search_docs d ON d.id = f.rowid
			WHERE search_fts MATCH ? AND d.published_at BETWEEN ? AND ?
			ORDER BY rank
			LIMIT ?`, q.matchExpr(column), q.Dates.Start.UnixMilli(), q.Dates.End.UnixMilli(), limit)
	} else {
		rows, err = ix.db.Query(`
			SELECT d.url, d.channel_name, d.title, d.published_at, d.views
			FROM search_fts f
			JOIN search_docs d ON d.id = f.rowid
			WHERE search_fts MATCH ?
			ORDER BY rank
			LIMIT ?`, q.matchExpr(column), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	seen := make(map[string]struct{})
	for rows.Next() {
		var h Hit
		var published int64
		if err := rows.Scan(&h.URL, &h.ChannelName, &h.Title, &published, &h.Views); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		if _, dup := seen[h.URL]; dup {
			continue
		}
		seen[h.URL] = struct{}{}
		h.DatePublished = time.UnixMilli(published).UTC()
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search hits: %w", err)
	}
	return hits, nil
}

// RemoveByChannelName deletes all documents for a channel. Idempotent.
func (ix *Index) RemoveByChannelName(channelName string) error {
	if _, err := ix.db.Exec(`DELETE FROM search_docs WHERE channel_name = ?`, channelName); err != nil {
		return fmt.Errorf("failed to remove channel %s from index: %w", channelName, err)
	}
	return nil
}

// Rebuild wipes the index and re-indexes the given records in one
// transaction. This is the repair path when the index has drifted from
// the relational store.
func (ix *Index) Rebuild(videos []model.Video) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM search_docs`); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	for _, vid := range dedupeByURL(videos) {
		_, err := tx.Exec(`
			INSERT INTO search_docs (url, channel_name, title, title_folded, channel_folded, published_at, views)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, vid.URL, vid.ChannelName, vid.Title, foldText(vid.Title), foldText(vid.ChannelName),
			vid.DatePublished.UnixMilli(), vid.Views)
		if err != nil {
			return fmt.Errorf("failed to index video %s: %w", vid.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}
	return nil
}

// dedupeByURL keeps the last occurrence of each URL in the batch.
func dedupeByURL(videos []model.Video) []model.Video {
	byURL := make(map[string]int, len(videos))
	out := make([]model.Video, 0, len(videos))
	for _, vid := range videos {
		if i, ok := byURL[vid.URL]; ok {
			out[i] = vid
			continue
		}
		byURL[vid.URL] = len(out)
		out = append(out, vid)
	}
	if dropped := len(videos) - len(out); dropped > 0 {
		slog.Warn("Filtered out duplicate videos from index batch", "dropped", dropped)
	}
	return out
}
