package models

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// UUID v4 format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
// where y is one of [8, 9, a, b] (variant bits)
var idV4Regex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// NewID generates a new record identifier (UUID v4).
func NewID() string {
	return uuid.New().String()
}

// IsValidID checks whether s is a well-formed UUID v4.
// Enforces strict format with dashes and correct variant bits.
func IsValidID(s string) bool {
	return idV4Regex.MatchString(s)
}

// ValidateID returns an error if s is not a well-formed UUID v4.
func ValidateID(s string) error {
	if !IsValidID(s) {
		return fmt.Errorf("invalid record id: %q", s)
	}
	return nil
}
