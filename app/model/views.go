package model

import (
	"strconv"
	"strings"
)

// ParseViews converts a scraped view-count string into a non-negative
// integer. View counts are cosmetic, so this never fails: "?" and "",
// and anything that still isn't numeric after normalization, all parse
// to 0. Thousands separators are stripped, and the abbreviated suffixes
// "K" and "M" multiply by 1e3 and 1e6.
func ParseViews(text string) int64 {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" || s == "?" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1_000
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1_000_000
		s = strings.TrimSuffix(s, "M")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(v * multiplier)
}
