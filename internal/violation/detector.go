// Package violation classifies a paid amount against an allowed amount.
package violation

import (
	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
)

// DefaultTolerance absorbs rounding noise: a shortfall must exceed one cent.
var DefaultTolerance = decimal.RequireFromString("0.01")

// Detector compares payments to allowed amounts.
type Detector struct {
	Tolerance decimal.Decimal
}

// NewDetector returns a Detector with DefaultTolerance.
func NewDetector() Detector {
	return Detector{Tolerance: DefaultTolerance}
}

// Detect computes delta = allowed - paid and flags a violation when delta
// exceeds the tolerance. An unknown allowed amount is never a violation.
// Codes are left to the caller.
func (d Detector) Detect(paid decimal.Decimal, allowed decimal.NullDecimal) model.ViolationResult {
	if !allowed.Valid {
		return model.ViolationResult{Reason: model.ReasonRateNotFound}
	}
	delta := allowed.Decimal.Sub(paid)
	return model.ViolationResult{
		AllowedAmount: allowed,
		Delta:         decimal.NewNullDecimal(delta),
		IsViolation:   delta.GreaterThan(d.Tolerance),
	}
}
