package search

import (
	"strings"
	"unicode"
)

// foldText normalizes text for indexing and matching: camel-case and
// letter/digit boundaries are split into separate words and everything
// is lowercased, so the query "Red Pill" matches the title "TheRedPill"
// and "RedPill78" matches itself token by token. The same fold is
// applied to indexed fields and to query terms.
func foldText(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)

	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
				b.WriteRune(' ')
			case unicode.IsUpper(r) && unicode.IsUpper(prev) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				b.WriteRune(' ')
			case unicode.IsDigit(r) && unicode.IsLetter(prev):
				b.WriteRune(' ')
			case unicode.IsLetter(r) && unicode.IsDigit(prev):
				b.WriteRune(' ')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
