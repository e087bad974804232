package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidDuration is wrapped by every duration parse failure.
var ErrInvalidDuration = errors.New("invalid duration")

// ParseDuration converts a scraped duration string into seconds.
//
// Accepted forms, in priority order:
//   - "", "?" and "Live" mean no duration and parse to 0
//   - a bare non-negative number (no colon) is taken as raw seconds,
//     with no upper bound; scrapers report values like "92.5" directly
//   - 1-3 colon-separated units, rightmost first: seconds (< 60, may be
//     fractional), minutes (< 60, integer), hours (< 24, integer)
//
// Anything else, including negative values and out-of-range units, fails.
func ParseDuration(text string) (float64, error) {
	if text == "" || text == "?" || text == "Live" {
		return 0, nil
	}

	if !strings.Contains(text, ":") {
		v, err := strconv.ParseFloat(text, 64)
		// ParseFloat also accepts "NaN" and "Inf"; a duration is a
		// finite non-negative number of seconds.
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || strings.HasPrefix(text, "-") {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
		}
		return v, nil
	}

	units := strings.Split(text, ":")
	if len(units) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}

	limits := []float64{60, 60, 24}
	multipliers := []float64{1, 60, 3600}

	var total float64
	for i := 0; i < len(units); i++ {
		unit := units[len(units)-1-i]

		var v float64
		var ok bool
		if i == 0 {
			// Only the seconds unit may carry a fractional part.
			v, ok = parseFractionalUnit(unit)
		} else {
			v, ok = parseIntegerUnit(unit)
		}
		if !ok || v >= limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
		}

		total += v * multipliers[i]
	}

	return total, nil
}

func parseFractionalUnit(s string) (float64, bool) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if !isDigits(whole) {
		return 0, false
	}
	if hasFrac && frac != "" && !isDigits(frac) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseIntegerUnit(s string) (float64, bool) {
	if !isDigits(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
