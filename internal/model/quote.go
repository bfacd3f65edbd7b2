package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateQuote is the cacheable part of a mandated-rate computation:
// FinalRate = round(BaseRate × COLAFactor × GeoFactor, 2).
// A quote with Found=false records that no rate exists for the key; it is
// cached like any other quote. Quotes are never mutated after construction.
type RateQuote struct {
	ProcedureCode string
	Year          int
	Region        string
	Payer         string

	BaseRate   decimal.Decimal
	COLAFactor decimal.Decimal
	GeoFactor  decimal.Decimal
	FinalRate  decimal.Decimal
	// EffectiveFrom is the start of the schedule row the quote was priced from.
	EffectiveFrom time.Time

	Found  bool
	Reason string
}

// NewRateQuote builds a found quote and computes its final rate.
func NewRateQuote(code string, year int, region, payer string, base, cola, geo decimal.Decimal) RateQuote {
	return RateQuote{
		ProcedureCode: code,
		Year:          year,
		Region:        region,
		Payer:         payer,
		BaseRate:      base,
		COLAFactor:    cola,
		GeoFactor:     geo,
		FinalRate:     base.Mul(cola).Mul(geo).RoundBank(2),
		Found:         true,
	}
}

// MissingQuote builds a quote for a key with no applicable rate.
func MissingQuote(code string, year int, region, payer, reason string) RateQuote {
	return RateQuote{
		ProcedureCode: code,
		Year:          year,
		Region:        region,
		Payer:         payer,
		Reason:        reason,
	}
}
