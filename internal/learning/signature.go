// Package learning records user corrections and promotes repeated
// correction patterns into learned classification rules.
package learning

import (
	"strings"
	"unicode"
)

// Signature normalizes a transaction description into the key used for
// aggregating corrections: lower-cased, whitespace-collapsed, with
// purely numeric tokens stripped. Store branch numbers, dates and
// amounts embedded in descriptions would otherwise split corrections
// for the same merchant across many keys.
func Signature(description string) string {
	fields := strings.Fields(strings.ToLower(description))
	kept := make([]string, 0, len(fields))
	for _, token := range fields {
		if hasLetter(token) {
			kept = append(kept, token)
		}
	}
	return strings.Join(kept, " ")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
