package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	dErrors "postcheck/pkg/domain-errors"
)

// MaxLength bounds a prefix key. Prefixes are opaque; the bound only keeps
// garbage out of the store.
const MaxLength = 16

// Prefix is a standard delivery area key. It is compared by value only and
// carries no ordering.
//
// Invariants:
//   - non-empty after trimming surrounding whitespace
//   - at most MaxLength characters
type Prefix string

// NewPrefix normalizes and validates a raw prefix.
func NewPrefix(raw string) (Prefix, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", dErrors.New(dErrors.CodeValidation, "prefix cannot be empty")
	}
	if utf8.RuneCountInString(value) > MaxLength {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("prefix must be %d characters or less", MaxLength))
	}
	return Prefix(value), nil
}

func (p Prefix) String() string {
	return string(p)
}

// ParseAll validates every raw value, failing on the first invalid one.
// Duplicates are collapsed.
func ParseAll(raw []string) ([]Prefix, error) {
	seen := make(map[Prefix]struct{}, len(raw))
	out := make([]Prefix, 0, len(raw))
	for _, r := range raw {
		p, err := NewPrefix(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// Strings converts prefixes to their string values.
func Strings(prefixes []Prefix) []string {
	out := make([]string, len(prefixes))
	for i, p := range prefixes {
		out[i] = string(p)
	}
	return out
}
