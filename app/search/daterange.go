package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateRange is a resolved date: clause, inclusive on both ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

var relativePhrase = regexp.MustCompile(`^(a|an|\d+)\s+(day|week|month|year)s?\s+ago$`)

// ResolveDatePhrase resolves a natural-language date phrase relative to
// now: "today", "yesterday", "a week ago", "3 days ago", "this week",
// or an explicit calendar date. Relative phrases resolve to the bounds
// of the single day they land on.
func ResolveDatePhrase(phrase string, now time.Time) (DateRange, error) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	p = strings.Trim(p, `'"`)
	if p == "" {
		return DateRange{}, fmt.Errorf("%w: empty date phrase", ErrInvalidQuery)
	}

	switch p {
	case "now", "today":
		return dayBounds(now), nil
	case "yesterday":
		return dayBounds(now.AddDate(0, 0, -1)), nil
	case "tomorrow":
		return dayBounds(now.AddDate(0, 0, 1)), nil
	case "this week":
		start := startOfDay(now.AddDate(0, 0, -daysSinceMonday(now)))
		return DateRange{Start: start, End: dayBounds(now).End}, nil
	case "this month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return DateRange{Start: start, End: dayBounds(now).End}, nil
	case "this year":
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return DateRange{Start: start, End: dayBounds(now).End}, nil
	}

	if m := relativePhrase.FindStringSubmatch(p); m != nil {
		n := 1
		if m[1] != "a" && m[1] != "an" {
			n, _ = strconv.Atoi(m[1])
		}
		var day time.Time
		switch m[2] {
		case "day":
			day = now.AddDate(0, 0, -n)
		case "week":
			day = now.AddDate(0, 0, -7*n)
		case "month":
			day = now.AddDate(0, -n, 0)
		case "year":
			day = now.AddDate(-n, 0, 0)
		}
		return dayBounds(day), nil
	}

	t, err := dateparse.ParseIn(p, now.Location())
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: unresolvable date phrase %q", ErrInvalidQuery, phrase)
	}
	return dayBounds(t), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayBounds(t time.Time) DateRange {
	start := startOfDay(t)
	return DateRange{Start: start, End: start.Add(24*time.Hour - time.Nanosecond)}
}

func daysSinceMonday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return wd - 1
}
