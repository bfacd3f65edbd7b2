package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownPayer is the payer name used until a payer-identification segment is seen.
const UnknownPayer = "unknown"

// ClaimLine is one billed service line joined with its claim header context.
// A claim header with N service lines yields N ClaimLines.
type ClaimLine struct {
	ClaimID      string
	LineNumber   int // 1-based position of the service line within its claim
	PayerName    string
	PayerClaimID string
	ClaimStatus  string

	ServiceDate   *time.Time
	ProcedureCode string
	Modifiers     []string
	Units         int

	BilledAmount decimal.NullDecimal
	PaidAmount   decimal.Decimal

	GeoRegion string
}

// ServiceYear returns the calendar year of the service date, or 0 when unknown.
func (l ClaimLine) ServiceYear() int {
	if l.ServiceDate == nil {
		return 0
	}
	return l.ServiceDate.Year()
}

// ServiceDateISO formats the service date as YYYY-MM-DD, or "" when unknown.
func (l ClaimLine) ServiceDateISO() string {
	if l.ServiceDate == nil {
		return ""
	}
	return l.ServiceDate.Format(time.DateOnly)
}
