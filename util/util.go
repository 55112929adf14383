package util

import (
	"strings"
)

// ParseCommaSeparated splits a comma-separated string into its trimmed,
// non-empty elements.
func ParseCommaSeparated(raw string) []string {
	res := make([]string, 0, 8)

	split := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' })
	for _, s := range split {
		if l := strings.TrimSpace(s); len(l) > 0 {
			res = append(res, l)
		}
	}

	return res
}
