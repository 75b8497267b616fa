// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// NonEmptyLines splits pasted text into trimmed, non-empty lines.
// Order and duplicates are preserved; duplicates are billable items.
//
// Example:
//
//	NonEmptyLines("BE0123456789\n\n  DE123 \r\nBE0123456789")
//	// Returns: []string{"BE0123456789", "DE123", "BE0123456789"}
func NonEmptyLines(text string) []string {
	if text == "" {
		return nil
	}
	return TrimNonEmpty(strings.Split(text, "\n"))
}

// TrimNonEmpty trims whitespace from each element and drops empty ones.
func TrimNonEmpty(values []string) []string {
	if len(values) == 0 {
		return values
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
