// Package strings normalizes operator-supplied string lists, such as the
// registry seed, before they reach a service.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every value and drops blanks and repeats.
// The first occurrence of a value keeps its position.
//
//	DedupeAndTrim([]string{"  10 ", "11", "10", "", "  "}) // []string{"10", "11"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitList splits a separated list such as "10, 11,,10" and normalizes it
// with DedupeAndTrim. An all-blank input yields an empty, non-nil slice.
func SplitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return DedupeAndTrim(strings.Split(s, sep))
}
