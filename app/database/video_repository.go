package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zackees/vids-db/app/model"
)

// VideoRepository handles database operations for video records. The
// videos table is keyed by URL and carries the full JSON-serialized
// record alongside the columns the range queries index on.
type VideoRepository struct {
	db *DB
}

// NewVideoRepository creates a new video repository
func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Upsert stores records keyed by URL, fully replacing any existing row.
// The first-seen discovery time of an existing row is preserved, and
// date_lastupdated is stamped on every write. Duplicate URLs within one
// batch resolve last-wins. The whole batch commits atomically.
func (r *VideoRepository) Upsert(videos []model.Video) error {
	if len(videos) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, vid := range videos {
		var discovered int64
		err := tx.QueryRow(`SELECT discovered_at FROM videos WHERE url = ?`, vid.URL).Scan(&discovered)
		switch {
		case err == sql.ErrNoRows:
			// first write for this URL, keep the record's own value
		case err != nil:
			return fmt.Errorf("failed to check existing video: %w", err)
		default:
			vid.DateDiscovered = time.UnixMilli(discovered).UTC()
		}
		vid.DateLastUpdated = now

		data, err := json.Marshal(vid)
		if err != nil {
			return fmt.Errorf("failed to serialize video %s: %w", vid.URL, err)
		}

		_, err = tx.Exec(`
			INSERT INTO videos (url, channel_name, published_at, discovered_at, data)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (url) DO UPDATE SET
				channel_name = excluded.channel_name,
				published_at = excluded.published_at,
				data = excluded.data
		`, vid.URL, vid.ChannelName, vid.DatePublished.UnixMilli(),
			vid.DateDiscovered.UnixMilli(), string(data))
		if err != nil {
			return fmt.Errorf("failed to store video %s: %w", vid.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// FindByURL returns the record for a URL, or nil when absent.
func (r *VideoRepository) FindByURL(url string) (*model.Video, error) {
	var data string
	err := r.db.QueryRow(`SELECT data FROM videos WHERE url = ?`, url).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find video by url: %w", err)
	}

	var vid model.Video
	if err := json.Unmarshal([]byte(data), &vid); err != nil {
		return nil, fmt.Errorf("failed to decode video %s: %w", url, err)
	}
	return &vid, nil
}

// FindByURLs returns the records for the given URLs. Missing URLs are
// silently omitted; result order is unspecified.
func (r *VideoRepository) FindByURLs(urls []string) ([]model.Video, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(urls))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	rows, err := r.db.Query(
		fmt.Sprintf(`SELECT data FROM videos WHERE url IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find videos by urls: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// FindByChannel returns all records for a channel, newest first.
func (r *VideoRepository) FindByChannel(channelName string) ([]model.Video, error) {
	rows, err := r.db.Query(`
		SELECT data FROM videos
		WHERE channel_name = ?
		ORDER BY published_at DESC
	`, channelName)
	if err != nil {
		return nil, fmt.Errorf("failed to find videos by channel: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// FindInRange returns records published in [start, end] inclusive,
// optionally filtered to one channel, newest first. limit <= 0 means
// unbounded.
func (r *VideoRepository) FindInRange(start, end time.Time, channelName string, limit int) ([]model.Video, error) {
	query := `SELECT data FROM videos WHERE published_at BETWEEN ? AND ?`
	args := []interface{}{start.UnixMilli(), end.UnixMilli()}

	if channelName != "" {
		query += ` AND channel_name = ?`
		args = append(args, channelName)
	}
	query += ` ORDER BY published_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find videos in range: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// ListChannelNames returns the set of channel names with stored records.
func (r *VideoRepository) ListChannelNames() (map[string]struct{}, error) {
	rows, err := r.db.Query(`SELECT DISTINCT channel_name FROM videos`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan channel name: %w", err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel names: %w", err)
	}
	return names, nil
}

// RemoveByChannelName deletes all records for a channel. Removing a
// channel with no records is a no-op.
func (r *VideoRepository) RemoveByChannelName(channelName string) error {
	if _, err := r.db.Exec(`DELETE FROM videos WHERE channel_name = ?`, channelName); err != nil {
		return fmt.Errorf("failed to remove channel %s: %w", channelName, err)
	}
	return nil
}

// All returns every stored record, newest first. Used to rebuild the
// search index from the source of truth.
func (r *VideoRepository) All() ([]model.Video, error) {
	rows, err := r.db.Query(`SELECT data FROM videos ORDER BY published_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load all videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func scanVideos(rows *sql.Rows) ([]model.Video, error) {
	var videos []model.Video
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		var vid model.Video
		if err := json.Unmarshal([]byte(data), &vid); err != nil {
			return nil, fmt.Errorf("failed to decode video row: %w", err)
		}
		videos = append(videos, vid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video rows: %w", err)
	}
	return videos, nil
}
