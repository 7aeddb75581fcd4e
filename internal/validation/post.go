package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Post and comment bounds, counted in characters after trimming.
const (
	MinTitleLength   = 3
	MaxTitleLength   = 200
	MinContentLength = 10
	MaxExcerptLength = 300
	MaxCommentLength = 1000
	MaxTags          = 20
)

// ValidateTitle checks a post title.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < MinTitleLength || n > MaxTitleLength {
		return errors.New("Title must be between 3 and 200 characters")
	}
	return nil
}

// ValidateContent checks a post body.
func ValidateContent(content string) error {
	if utf8.RuneCountInString(strings.TrimSpace(content)) < MinContentLength {
		return errors.New("Content must be at least 10 characters long")
	}
	return nil
}

// ValidateExcerpt checks an explicitly supplied excerpt.
func ValidateExcerpt(excerpt string) error {
	if utf8.RuneCountInString(strings.TrimSpace(excerpt)) > MaxExcerptLength {
		return errors.New("Excerpt cannot exceed 300 characters")
	}
	return nil
}

// ValidateTags bounds the number of tags on a post.
func ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return errors.New("A post can have at most 20 tags")
	}
	return nil
}

// ValidateComment checks comment content.
func ValidateComment(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n < 1 || n > MaxCommentLength {
		return errors.New("Comment must be between 1 and 1000 characters")
	}
	return nil
}
