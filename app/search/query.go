package search

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidQuery is wrapped by every query parse failure. A query that
// fails to parse returns no partial results.
var ErrInvalidQuery = errors.New("invalid query")

// Query is a parsed search query: free-text terms combined with implicit
// AND, plus an optional date: clause filtering publish dates.
type Query struct {
	Terms []string
	Dates *DateRange
}

// ParseQuery parses the search mini-language. Free tokens are folded
// search terms; a "date:<phrase>" clause consumes the remainder of the
// query string and resolves relative to now ("date:today",
// "date:a week ago"). A query with no terms and no date clause, or with
// unbalanced quotes, is invalid.
func ParseQuery(raw string, now time.Time) (Query, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Query{}, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if strings.Count(s, `"`)%2 != 0 {
		return Query{}, fmt.Errorf("%w: unbalanced quotes in %q", ErrInvalidQuery, raw)
	}

	var q Query

	text := s
	if idx := findDateClause(s); idx >= 0 {
		phrase := strings.TrimPrefix(s[idx:], "date:")
		text = s[:idx]

		dates, err := ResolveDatePhrase(phrase, now)
		if err != nil {
			return Query{}, err
		}
		q.Dates = &dates
	}

	text = strings.ReplaceAll(text, `"`, " ")
	q.Terms = strings.Fields(foldText(text))

	if len(q.Terms) == 0 && q.Dates == nil {
		return Query{}, fmt.Errorf("%w: no usable terms in %q", ErrInvalidQuery, raw)
	}
	return q, nil
}

// findDateClause returns the byte index of a whitespace-delimited
// "date:" token, or -1. Matching is done in place on the original
// string: lowering the whole string first would shift byte offsets for
// runes whose lowercase form has a different encoded length.
func findDateClause(s string) int {
	const clause = "date:"
	for i := 0; i+len(clause) <= len(s); i++ {
		if i > 0 && s[i-1] != ' ' && s[i-1] != '\t' {
			continue
		}
		if strings.EqualFold(s[i:i+len(clause)], clause) {
			return i
		}
	}
	return -1
}

// matchExpr builds the FTS5 MATCH expression that ANDs every term
// against one column. Terms are quoted so user input cannot inject
// FTS5 syntax.
func (q Query) matchExpr(column string) string {
	parts := make([]string, 0, len(q.Terms))
	for _, term := range q.Terms {
		escaped := strings.ReplaceAll(term, `"`, `""`)
		parts = append(parts, fmt.Sprintf(`%s:"%s"`, column, escaped))
	}
	return strings.Join(parts, " AND ")
}
