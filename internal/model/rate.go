package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseRate is one fee-schedule row for a procedure code. Amount is the
// schedule amount; RVU-based schedules carry the three relative value
// components instead and leave Amount zero.
type BaseRate struct {
	Schedule      string
	ProcedureCode string
	Amount        decimal.Decimal

	WorkRVU        decimal.Decimal
	PracticeRVU    decimal.Decimal
	MalpracticeRVU decimal.Decimal

	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

// TotalRVU sums the relative value components.
func (r BaseRate) TotalRVU() decimal.Decimal {
	return r.WorkRVU.Add(r.PracticeRVU).Add(r.MalpracticeRVU)
}

// HasRVU reports whether the row is RVU based.
func (r BaseRate) HasRVU() bool {
	return !r.TotalRVU().IsZero()
}

// EffectiveOn reports whether the row applies on day d.
func (r BaseRate) EffectiveOn(d time.Time) bool {
	if d.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !d.After(*r.EffectiveTo)
}

// FeeScheduleColumns returns the COPY column order for ref.fee_schedule_rates.
func FeeScheduleColumns() []string {
	return []string{
		"schedule", "procedure_code", "amount",
		"work_rvu", "practice_rvu", "malpractice_rvu",
		"effective_from", "effective_to",
	}
}

// CopyValues returns the row's values in FeeScheduleColumns order.
func (r BaseRate) CopyValues() []any {
	var to any
	if r.EffectiveTo != nil {
		to = *r.EffectiveTo
	}
	return []any{
		r.Schedule, r.ProcedureCode, r.Amount.String(),
		r.WorkRVU.String(), r.PracticeRVU.String(), r.MalpracticeRVU.String(),
		r.EffectiveFrom, to,
	}
}
