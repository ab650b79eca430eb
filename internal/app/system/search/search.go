// internal/app/system/search/search.go
package search

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Matches reports whether q occurs in any of fields after case folding.
// An empty query matches everything.
func Matches(q string, fields ...string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return true
	}
	needle := text.Fold(q)
	for _, f := range fields {
		if f != "" && strings.Contains(text.Fold(f), needle) {
			return true
		}
	}
	return false
}

// Filter returns the rows whose fields match q, preserving order.
func Filter[T any](rows []T, q string, fields func(T) []string) []T {
	if strings.TrimSpace(q) == "" {
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if Matches(q, fields(r)...) {
			out = append(out, r)
		}
	}
	return out
}
