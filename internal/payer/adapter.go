// Package payer resolves mandated allowed amounts per payer and classifies
// payments against them. Each payer is an Adapter; a Registry maps payer
// names and aliases to adapters.
package payer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/ratecache"
	"github.com/gyeh/remitcheck/internal/rates"
	"github.com/gyeh/remitcheck/internal/violation"
)

// Type is the regulatory category of a payer.
type Type string

const (
	TypeMedicaid   Type = "medicaid"
	TypeMedicare   Type = "medicare"
	TypeCommercial Type = "commercial"
)

// Where an allowed amount came from.
const (
	SourceFeeSchedule   = "fee_schedule"
	SourceContract      = "contract"
	SourceBilledCharges = "billed_charges"
)

// Adapter is the per-payer rate and verdict capability.
type Adapter interface {
	Key() string
	Name() string
	Type() Type
	// AllowedAmount resolves what the payer should have allowed for the line.
	// An undeterminable amount is not an error; errors mean the rate data
	// could not be read.
	AllowedAmount(ctx context.Context, req Request) (Allowed, error)
	// DetectUnderpayment resolves the allowed amount and classifies the payment.
	DetectUnderpayment(ctx context.Context, req Request) (Assessment, error)
	// ValidateClaim lists payer-specific problems with a line. Issues are
	// informational and never stop rating.
	ValidateClaim(line model.ClaimLine) []string
}

// Request is the per-line input to an Adapter.
type Request struct {
	ProcedureCode string
	ServiceDate   *time.Time
	Modifiers     []string
	Units         int
	Region        string
	PaidAmount    decimal.Decimal
	BilledAmount  decimal.NullDecimal
	// ContractRate, when valid, replaces the computed estimate.
	ContractRate decimal.NullDecimal
}

// RequestFromLine builds a Request from an assembled claim line.
func RequestFromLine(l model.ClaimLine) Request {
	return Request{
		ProcedureCode: l.ProcedureCode,
		ServiceDate:   l.ServiceDate,
		Modifiers:     l.Modifiers,
		Units:         l.Units,
		Region:        l.GeoRegion,
		PaidAmount:    l.PaidAmount,
		BilledAmount:  l.BilledAmount,
	}
}

// Allowed is a resolved allowed amount and how it was derived.
type Allowed struct {
	Amount         decimal.NullDecimal
	Source         string
	Quote          *model.RateQuote // nil when the schedule was not consulted
	ModifierFactor decimal.NullDecimal
	// Reason says why Amount is null.
	Reason string
}

// Assessment pairs an allowed amount with the payment verdict.
type Assessment struct {
	Allowed Allowed
	Result  model.ViolationResult
}

// QuoteCache memoizes schedule quotes. *ratecache.Cache satisfies it.
type QuoteCache interface {
	GetOrCompute(ctx context.Context, key ratecache.Key, compute ratecache.ComputeFunc) (model.RateQuote, error)
}

// Deps are the collaborators every adapter is built with.
type Deps struct {
	Source   rates.Source
	Cache    QuoteCache
	Detector violation.Detector
	// Profiles override the built-in adjustment tables, keyed by adapter key.
	Profiles map[string]Profile
	Log      zerolog.Logger
}

// Factory builds an adapter from shared dependencies.
type Factory func(Deps) Adapter
