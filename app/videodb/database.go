// Package videodb is the facade over the two stores: the durable
// relational store (source of truth) and the full-text search index
// (best-effort secondary). There is no transaction spanning both; a
// record can briefly be stored but not yet searchable, and
// RebuildSearchIndex is the repair path for that gap.
package videodb

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/zackees/vids-db/app/database"
	"github.com/zackees/vids-db/app/model"
	"github.com/zackees/vids-db/app/search"
)

// Database coordinates the relational store and the search index. It
// holds no mutable state beyond the two store handles, so it is safe
// for concurrent callers; each store provides its own locking.
type Database struct {
	db    *database.DB
	repo  *database.VideoRepository
	index *search.Index
}

// New opens (creating if necessary) both stores under dataDir:
// videos.sqlite for the relational store and search.sqlite for the
// search index. Either failing to open is fatal.
func New(dataDir string) (*Database, error) {
	db, err := database.NewConnection(filepath.Join(dataDir, "videos.sqlite"))
	if err != nil {
		return nil, err
	}
	if _, _, err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", database.ErrUnavailable, err)
	}

	index, err := search.Open(filepath.Join(dataDir, "search.sqlite"))
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Database{
		db:    db,
		repo:  database.NewVideoRepository(db),
		index: index,
	}, nil
}

// Close closes both stores.
func (d *Database) Close() error {
	indexErr := d.index.Close()
	if err := d.db.Close(); err != nil {
		return err
	}
	return indexErr
}

// UpdateMany upserts a batch of records into both stores. The relational
// store is written first: if the search index write then fails, the
// records are durably stored but not yet searchable, and the error is
// surfaced so the caller can schedule a reindex.
func (d *Database) UpdateMany(videos []model.Video) error {
	if err := d.repo.Upsert(videos); err != nil {
		return err
	}
	if err := d.index.IndexVideos(videos); err != nil {
		return fmt.Errorf("stored but not indexed: %w", err)
	}
	return nil
}

// Update upserts a single record.
func (d *Database) Update(vid model.Video) error {
	return d.UpdateMany([]model.Video{vid})
}

// GetVideoList returns records published in [start, end] inclusive,
// optionally filtered to one channel, newest first.
func (d *Database) GetVideoList(start, end time.Time, channelName string, limit int) ([]model.Video, error) {
	return d.repo.FindInRange(start, end, channelName, limit)
}

// QueryVideoList runs a free-text query against channel names and
// titles, merges the hits (first seen wins), applies limit, and
// re-fetches the full records from the relational store so display
// data comes from a single source of truth.
func (d *Database) QueryVideoList(query string, limit int) ([]model.Video, error) {
	channelHits, err := d.index.SearchChannel(query, limit)
	if err != nil {
		return nil, err
	}
	titleHits, err := d.index.SearchTitle(query, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, h := range append(channelHits, titleHits...) {
		if _, dup := seen[h.URL]; dup {
			continue
		}
		seen[h.URL] = struct{}{}
		urls = append(urls, h.URL)
		if limit > 0 && len(urls) == limit {
			break
		}
	}

	videos, err := d.repo.FindByURLs(urls)
	if err != nil {
		return nil, err
	}

	// FindByURLs does not promise input order; restore locator order.
	byURL := make(map[string]model.Video, len(videos))
	for _, vid := range videos {
		byURL[vid.URL] = vid
	}
	ordered := make([]model.Video, 0, len(videos))
	for _, url := range urls {
		if vid, ok := byURL[url]; ok {
			ordered = append(ordered, vid)
		}
	}
	return ordered, nil
}

// GetVideoByURL returns the stored record for a URL, or nil.
func (d *Database) GetVideoByURL(url string) (*model.Video, error) {
	return d.repo.FindByURL(url)
}

// GetChannelNames returns the sorted list of channels with records.
func (d *Database) GetChannelNames() ([]string, error) {
	set, err := d.repo.ListChannelNames()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RemoveByChannelName deletes a channel's records from both stores.
// Idempotent.
func (d *Database) RemoveByChannelName(channelName string) error {
	if err := d.repo.RemoveByChannelName(channelName); err != nil {
		return err
	}
	return d.index.RemoveByChannelName(channelName)
}

// RebuildSearchIndex re-derives the whole search index from the
// relational store, repairing any drift between the two.
func (d *Database) RebuildSearchIndex() (int, error) {
	videos, err := d.repo.All()
	if err != nil {
		return 0, err
	}
	if err := d.index.Rebuild(videos); err != nil {
		return 0, err
	}
	return len(videos), nil
}
