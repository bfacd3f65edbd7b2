package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// NormalizeName lowercases, collapses whitespace, and trims the input.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return multiSpace.ReplaceAllString(strings.ToLower(s), " ")
}
