package normalize

import (
	"strings"
	"time"
)

// x12Date is the CCYYMMDD layout used by DTM segments.
const x12Date = "20060102"

// Date formats accepted in rate tables and config files.
var dateFormats = []string{
	time.DateOnly,
	x12Date,
	"01/02/2006",
	"2006/01/02",
	time.RFC3339,
}

// ParseX12Date parses a CCYYMMDD date. Returns nil if empty or unparseable.
func ParseX12Date(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) != len(x12Date) {
		return nil
	}
	t, err := time.Parse(x12Date, s)
	if err != nil {
		return nil
	}
	return &t
}

// ParseDate attempts to parse a date string in multiple common formats.
// Returns nil if the input is empty or unparseable.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
