// Package strings normalises the comma-separated lists that arrive through
// configuration and query strings.
package strings

import (
	"strings"
)

// NormalizeList lower-cases and trims each value, dropping empties and
// duplicates while keeping first-seen order.
//
//	NormalizeList([]string{" Wedding", "order", "WEDDING", ""})
//	// []string{"wedding", "order"}
func NormalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SplitList splits a comma-separated value and normalises the parts.
// Repeated query parameters can be passed whole: each element is split too.
func SplitList(values ...string) []string {
	var parts []string
	for _, v := range values {
		parts = append(parts, strings.Split(v, ",")...)
	}
	return NormalizeList(parts)
}
