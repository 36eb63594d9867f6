// utils/validator.go - Input validation
package utils

import (
	"strings"

	"github.com/mcnijman/go-emailaddress"
)

// ValidateEmail checks if email is a syntactically valid address
func ValidateEmail(email string) bool {
	if strings.TrimSpace(email) != email || email == "" {
		return false
	}
	_, err := emailaddress.Parse(email)
	return err == nil
}

// NormalizeEmail lowercases and trims an address for lookups and push topics
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}
