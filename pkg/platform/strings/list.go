// Package strings holds small helpers for list-valued settings.
package strings

import (
	"strings"
)

// SplitList splits a comma separated setting such as "a:9092, b:9092,a:9092"
// into its trimmed, distinct, non-empty items in first-seen order.
func SplitList(s string) []string {
	return DedupeAndTrim(strings.Split(s, ","))
}

// DedupeAndTrim trims each value and drops blanks and repeats. Order is kept.
func DedupeAndTrim(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
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
