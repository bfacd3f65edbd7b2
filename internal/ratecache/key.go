// Package ratecache memoizes rate quotes by (code, year, region, payer).
package ratecache

import (
	"fmt"
	"strings"
)

// Key identifies one cached quote.
type Key struct {
	ProcedureCode string
	Year          int
	Region        string
	Payer         string
}

// NewKey builds a Key with the region case-folded so "NYC" and "nyc" share an entry.
func NewKey(code string, year int, region, payer string) Key {
	return Key{
		ProcedureCode: code,
		Year:          year,
		Region:        strings.ToLower(strings.TrimSpace(region)),
		Payer:         payer,
	}
}

// String renders the key as rate:{code}:{year}:{region}:{payer}.
func (k Key) String() string {
	region := k.Region
	if region == "" {
		region = "-"
	}
	return fmt.Sprintf("rate:%s:%d:%s:%s", k.ProcedureCode, k.Year, region, k.Payer)
}
