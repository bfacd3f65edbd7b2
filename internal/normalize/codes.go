package normalize

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// NormalizeCode trims whitespace, uppercases, and strips non-alphanumeric characters.
func NormalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
}

// NormalizeCodes applies NormalizeCode to each entry and drops empties.
func NormalizeCodes(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = NormalizeCode(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// IsBehavioralHealth reports whether a CPT code falls in the psychiatry
// (90xxx) or developmental/behavioral (96xxx) ranges.
func IsBehavioralHealth(code string) bool {
	return strings.HasPrefix(code, "90") || strings.HasPrefix(code, "96")
}
