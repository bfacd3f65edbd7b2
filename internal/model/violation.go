package model

import "github.com/shopspring/decimal"

// Violation codes attached to underpaid lines.
const (
	CodeParityViolation         = "NY_PARITY_VIOLATION"
	CodeFeeScheduleUnderpayment = "FEE_SCHEDULE_UNDERPAYMENT"
	CodeMedicareUnderpayment    = "MEDICARE_UNDERPAYMENT"
	CodeCommercialUnderpayment  = "COMMERCIAL_UNDERPAYMENT"
	CodeContractUnderpayment    = "CONTRACT_UNDERPAYMENT"
)

// Reasons recorded on lines whose rate could not be determined.
const (
	ReasonRateNotFound       = "rate not found"
	ReasonServiceDateMissing = "service date missing"
	ReasonUnsupportedPayer   = "unsupported payer"
)

// ViolationResult is the verdict for one claim line.
type ViolationResult struct {
	AllowedAmount  decimal.NullDecimal
	Delta          decimal.NullDecimal
	IsViolation    bool
	ViolationCodes []string
	Reason         string
}

// Determinable reports whether an allowed amount was resolved.
func (v ViolationResult) Determinable() bool {
	return v.AllowedAmount.Valid
}

// Underpayment returns the positive shortfall of a violating line, else zero.
func (v ViolationResult) Underpayment() decimal.Decimal {
	if !v.IsViolation || !v.Delta.Valid {
		return decimal.Zero
	}
	return v.Delta.Decimal
}
