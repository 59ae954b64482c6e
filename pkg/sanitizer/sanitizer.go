// Package sanitizer normalizes untrusted input before validation and
// storage. Every email that enters the identity engine goes through
// NormalizeEmail so lookups and uniqueness checks never depend on input
// casing or stray whitespace.
package sanitizer

import (
	"regexp"
	"strings"
)

var dotRegex = regexp.MustCompile(`\.{2,}`)

// NormalizeEmail lowercases, trims and consolidates consecutive dots in
// the local part. Invalid shapes are returned as-is for the validator to
// reject with a proper message.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := dotRegex.ReplaceAllString(parts[0], ".")
	local = strings.Trim(local, ".")

	return local + "@" + parts[1]
}

// TrimName collapses inner whitespace runs and trims a display name.
func TrimName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
