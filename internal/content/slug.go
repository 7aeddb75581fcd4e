// Package content holds the text derivations applied to posts: slugs,
// excerpts, reading time, tag normalization and Markdown rendering.
package content

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackSlug is used when a title contains nothing slug-worthy.
const FallbackSlug = "post"

const maxSlugLength = 180

var (
	separatorRegex  = regexp.MustCompile(`[\s_/.]+`)
	slugRegex       = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a title to a lowercase, hyphenated, ASCII slug.
// Accents are folded ("Café" -> "cafe"); other symbols are dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	result = strings.ToLower(strings.TrimSpace(result))
	result = separatorRegex.ReplaceAllString(result, "-")
	result = slugRegex.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > maxSlugLength {
		result = strings.TrimRight(result[:maxSlugLength], "-")
	}
	if result == "" {
		return FallbackSlug
	}
	return result
}
