package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrInvalidTimestamp is wrapped by every timestamp parse failure.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ParseTimestamp parses a scraped timestamp string into a timezone-aware
// instant. It tries strict RFC 3339 first and falls back to fuzzy parsing
// for the locale-varying formats scrapers emit ("2021-03-29 01:13:15+00:00",
// "March 29, 2021", ...). Timestamps without an offset are anchored to UTC.
func ParseTimestamp(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidTimestamp)
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}
	return t, nil
}

// FormatTimestamp renders an instant in the canonical persistence and
// wire format: RFC 3339 with offset, sub-second precision preserved.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
