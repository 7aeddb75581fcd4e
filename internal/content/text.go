package content

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// ExcerptLength is the number of characters of content kept in a derived excerpt.
	ExcerptLength = 150
	// WordsPerMinute drives the reading time estimate.
	WordsPerMinute = 200
	// MaxTagLength bounds a single normalized tag.
	MaxTagLength = 50
)

// Excerpt returns the first ExcerptLength characters of content followed by "...".
// Shorter content is returned unchanged.
func Excerpt(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= ExcerptLength {
		return content
	}
	r := []rune(content)
	return string(r[:ExcerptLength]) + "..."
}

// ReadingTime estimates minutes to read content, never less than one.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// NormalizeTags trims and lower-cases tags, dropping empties and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			tag = string([]rune(tag)[:MaxTagLength])
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
