package aggregate

import (
	"strings"
	"unicode"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

const dedupPrefixRunes = 50

// DedupKey lower-cases the title, drops everything but letters, digits and
// spaces, collapses whitespace and keeps the first 50 runes.
func DedupKey(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	key := []rune(strings.Join(strings.Fields(b.String()), " "))
	if len(key) > dedupPrefixRunes {
		key = key[:dedupPrefixRunes]
	}
	return string(key)
}

// Dedup drops records whose key was already seen. The first occurrence wins
// and relative order is kept.
func Dedup(records []model.ResultRecord) []model.ResultRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.ResultRecord, 0, len(records))
	for _, r := range records {
		key := DedupKey(r.Title)
		if key == "" {
			key = "id:" + r.ID
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
