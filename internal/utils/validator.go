package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword reports whether a password can be hashed without truncation
func ValidatePassword(password string) bool {
	return password != "" && len(password) <= MaxPasswordBytes
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SanitizeUsername lower-cases and trims a username. Usernames are unique case-insensitively.
func SanitizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// IsBlank reports whether any of the values is empty after trimming
func IsBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
