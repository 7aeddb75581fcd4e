// Package validation provides input validation utilities
package validation

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Password length bounds.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// ValidatePassword checks the password length. bcrypt ignores bytes past 72,
// so longer input is rejected instead of silently truncated.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errors.New("Password must be at least 6 characters long")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("Password must not exceed 72 bytes")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 30 {
		return errors.New("Username must be between 3 and 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("Username can only contain letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New("Email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("Please provide a valid email")
	}
	return nil
}
