// Package strings provides ordered string-set helpers used for URN and group lists.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  tel:+1 ", "tel:+2", "tel:+1", "", "  "})
//	// Returns: []string{"tel:+1", "tel:+2"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// Union appends every element of extra that is not already present in base.
// The result keeps base's order followed by the new elements in extra's order.
// Applying Union twice with the same extra yields the same slice as once.
func Union(base, extra []string) []string {
	result := DedupeAndTrim(append(append([]string(nil), base...), extra...))
	if result == nil {
		return []string{}
	}
	return result
}

// Contains reports whether value is present in values.
func Contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Intersects reports whether a and b share at least one non-empty element.
func Intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; ok {
			return true
		}
	}
	return false
}
