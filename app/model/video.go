package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Video is the canonical, validated video metadata record. The URL is its
// identity: both stores key on it. A Video is fully formed before it
// reaches either store; construction goes through NewVideo.
type Video struct {
	ChannelName     string
	Title           string
	DatePublished   time.Time
	DateDiscovered  time.Time
	DateLastUpdated time.Time
	ChannelURL      string
	Source          string
	URL             string
	Duration        float64 // seconds
	Description     string
	ImgSrc          string
	IframeSrc       string
	Views           int64
}

// Scalar accepts either a JSON string or a JSON number. Scrapers disagree
// on whether fields like views and duration are quoted.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	*s = Scalar(bytes.TrimSpace(data))
	return nil
}

// RawVideo is the unvalidated wire form of a record as scrapers send it.
type RawVideo struct {
	ChannelName     string `json:"channel_name"`
	Title           string `json:"title"`
	DatePublished   string `json:"date_published"`
	DateDiscovered  string `json:"date_discovered,omitempty"`
	DateLastUpdated string `json:"date_lastupdated,omitempty"`
	ChannelURL      string `json:"channel_url"`
	Source          string `json:"source"`
	URL             string `json:"url"`
	Duration        Scalar `json:"duration"`
	Description     string `json:"description"`
	ImgSrc          string `json:"img_src"`
	IframeSrc       string `json:"iframe_src"`
	Views           Scalar `json:"views"`
}

// NewVideo validates a raw record into a Video. This is the single
// validation pipeline: a malformed duration or timestamp fails here and
// the record never reaches a store. View counts are the deliberate
// exception and coerce to 0 instead of failing. URL-shaped fields are
// treated as opaque non-empty text.
func NewVideo(raw RawVideo) (Video, error) {
	v := Video{
		ChannelName: strings.TrimSpace(raw.ChannelName),
		Title:       strings.TrimSpace(raw.Title),
		ChannelURL:  strings.TrimSpace(raw.ChannelURL),
		Source:      strings.TrimSpace(raw.Source),
		URL:         strings.TrimSpace(raw.URL),
		Description: raw.Description,
		ImgSrc:      strings.TrimSpace(raw.ImgSrc),
		IframeSrc:   strings.TrimSpace(raw.IframeSrc),
	}

	for name, val := range map[string]string{
		"channel_name": v.ChannelName,
		"title":        v.Title,
		"url":          v.URL,
		"source":       v.Source,
	} {
		if val == "" {
			return Video{}, fmt.Errorf("field %s must not be empty", name)
		}
	}

	duration, err := ParseDuration(string(raw.Duration))
	if err != nil {
		return Video{}, err
	}
	v.Duration = duration
	v.Views = ParseViews(string(raw.Views))

	published, err := ParseTimestamp(raw.DatePublished)
	if err != nil {
		return Video{}, fmt.Errorf("date_published: %w", err)
	}
	v.DatePublished = published

	now := time.Now().UTC()
	v.DateDiscovered, err = optionalTimestamp(raw.DateDiscovered, now)
	if err != nil {
		return Video{}, fmt.Errorf("date_discovered: %w", err)
	}
	v.DateLastUpdated, err = optionalTimestamp(raw.DateLastUpdated, now)
	if err != nil {
		return Video{}, fmt.Errorf("date_lastupdated: %w", err)
	}

	return v, nil
}

func optionalTimestamp(text string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(text) == "" {
		return fallback, nil
	}
	return ParseTimestamp(text)
}

// videoJSON is the canonical serialized form, with timestamps as RFC 3339
// strings. This is both the stored payload and the API response shape.
type videoJSON struct {
	ChannelName     string  `json:"channel_name"`
	Title           string  `json:"title"`
	DatePublished   string  `json:"date_published"`
	DateDiscovered  string  `json:"date_discovered"`
	DateLastUpdated string  `json:"date_lastupdated"`
	ChannelURL      string  `json:"channel_url"`
	Source          string  `json:"source"`
	URL             string  `json:"url"`
	Duration        float64 `json:"duration"`
	Description     string  `json:"description"`
	ImgSrc          string  `json:"img_src"`
	IframeSrc       string  `json:"iframe_src"`
	Views           int64   `json:"views"`
}

func (v Video) MarshalJSON() ([]byte, error) {
	return json.Marshal(videoJSON{
		ChannelName:     v.ChannelName,
		Title:           v.Title,
		DatePublished:   FormatTimestamp(v.DatePublished),
		DateDiscovered:  FormatTimestamp(v.DateDiscovered),
		DateLastUpdated: FormatTimestamp(v.DateLastUpdated),
		ChannelURL:      v.ChannelURL,
		Source:          v.Source,
		URL:             v.URL,
		Duration:        v.Duration,
		Description:     v.Description,
		ImgSrc:          v.ImgSrc,
		IframeSrc:       v.IframeSrc,
		Views:           v.Views,
	})
}

func (v *Video) UnmarshalJSON(data []byte) error {
	var j videoJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	published, err := ParseTimestamp(j.DatePublished)
	if err != nil {
		return fmt.Errorf("date_published: %w", err)
	}
	discovered, err := ParseTimestamp(j.DateDiscovered)
	if err != nil {
		return fmt.Errorf("date_discovered: %w", err)
	}
	updated, err := ParseTimestamp(j.DateLastUpdated)
	if err != nil {
		return fmt.Errorf("date_lastupdated: %w", err)
	}

	*v = Video{
		ChannelName:     j.ChannelName,
		Title:           j.Title,
		DatePublished:   published,
		DateDiscovered:  discovered,
		DateLastUpdated: updated,
		ChannelURL:      j.ChannelURL,
		Source:          j.Source,
		URL:             j.URL,
		Duration:        j.Duration,
		Description:     j.Description,
		ImgSrc:          j.ImgSrc,
		IframeSrc:       j.IframeSrc,
		Views:           j.Views,
	}
	return nil
}

// publishEnvelope is the batch publishing format: either a bare JSON
// array of raw records, or an object wrapping it under "content".
type publishEnvelope struct {
	Content []RawVideo `json:"content"`
}

// ParseVideoJSON decodes a batch payload of raw records and validates
// each one. Individually malformed records are skipped with a log line
// rather than failing the batch; ingestion must not abort on one bad
// record.
func ParseVideoJSON(data []byte) ([]Video, error) {
	var raws []RawVideo

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env publishEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to parse publish envelope: %w", err)
		}
		raws = env.Content
	} else {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("failed to parse video list: %w", err)
		}
	}

	videos := make([]Video, 0, len(raws))
	for _, raw := range raws {
		vid, err := NewVideo(raw)
		if err != nil {
			slog.Warn("Skipping invalid video record", "url", raw.URL, "error", err)
			continue
		}
		videos = append(videos, vid)
	}
	return videos, nil
}
