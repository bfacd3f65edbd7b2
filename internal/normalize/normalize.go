package normalize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/gyeh/remitcheck/internal/model"
)

// ToResultRow flattens a rated line into its Parquet representation.
func ToResultRow(rl *model.RatedLine, runID uuid.UUID) model.ResultRow {
	l := rl.Line
	row := model.ResultRow{
		RunID:      runID.String(),
		LineHash:   LineHash(l.LineNumber, l.ClaimID, l.ProcedureCode),
		ClaimID:    l.ClaimID,
		LineNumber: int32(l.LineNumber),

		PayerName:    l.PayerName,
		PayerKey:     optStr(rl.PayerKey),
		PayerClaimID: optStr(l.PayerClaimID),

		ServiceDate:   optStr(l.ServiceDateISO()),
		ProcedureCode: l.ProcedureCode,
		Modifiers:     optStr(strings.Join(l.Modifiers, ",")),
		Units:         int32(l.Units),
		GeoRegion:     optStr(l.GeoRegion),

		BilledCents:  DollarsToCents(l.BilledAmount),
		PaidCents:    Cents(l.PaidAmount),
		AllowedCents: DollarsToCents(rl.Result.AllowedAmount),
		DeltaCents:   DollarsToCents(rl.Result.Delta),

		BaseRateCents: DollarsToCents(rl.BaseRate),
		COLAFactor:    FactorToFloat(rl.COLAFactor),
		GeoFactor:     FactorToFloat(rl.GeoFactor),
		RateSource:    optStr(rl.RateSource),

		IsViolation:      rl.Result.IsViolation,
		ViolationCodes:   optStr(strings.Join(rl.Result.ViolationCodes, "|")),
		Reason:           optStr(rl.Result.Reason),
		ValidationIssues: optStr(strings.Join(rl.ValidationIssues, "|")),
		Error:            optStr(rl.Err),
	}
	return row
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
