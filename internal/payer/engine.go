package payer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/ratecache"
	"github.com/gyeh/remitcheck/internal/rates"
	"github.com/gyeh/remitcheck/internal/violation"
)

// pricer turns a schedule row into the base amount and geographic factor
// for a region. COLA is applied by the engine.
type pricer func(row model.BaseRate, region string) (base, geo decimal.Decimal)

// engine is the schedule machinery shared by every adapter:
// base rate -> COLA by service year -> geography, then modifiers.
type engine struct {
	key      string
	schedule string
	profile  Profile
	source   rates.Source
	cache    QuoteCache
	detector violation.Detector
	log      zerolog.Logger
}

func newEngine(key string, defaults Profile, deps Deps) *engine {
	profile := defaults
	if o, ok := deps.Profiles[key]; ok {
		profile = defaults.Merge(o)
	}
	det := deps.Detector
	if det.Tolerance.IsZero() {
		det = violation.NewDetector()
	}
	return &engine{
		key:      key,
		schedule: key,
		profile:  profile,
		source:   deps.Source,
		cache:    deps.Cache,
		detector: det,
		log:      deps.Log.With().Str("payer", key).Logger(),
	}
}

// override returns the caller's contract rate or the profile's, if either is set.
func (e *engine) override(req Request) (Allowed, bool) {
	rate := req.ContractRate
	if !rate.Valid {
		rate = e.profile.ContractRate(req.ProcedureCode)
	}
	if !rate.Valid {
		return Allowed{}, false
	}
	return Allowed{Amount: decimal.NewNullDecimal(rate.Decimal.RoundBank(2)), Source: SourceContract}, true
}

// quote returns the cached schedule quote for the request's key.
func (e *engine) quote(ctx context.Context, code string, year int, region string, price pricer) (model.RateQuote, error) {
	key := ratecache.NewKey(code, year, region, e.key)
	return e.cache.GetOrCompute(ctx, key, func(ctx context.Context) (model.RateQuote, error) {
		rows, err := e.source.BaseRates(ctx, e.schedule, code)
		if err != nil {
			return model.RateQuote{}, fmt.Errorf("base rates for %s: %w", code, err)
		}
		row, ok := rates.EffectiveForYear(rows, year)
		if !ok {
			e.log.Debug().Str("procedure_code", code).Int("year", year).Msg("no base rate")
			return model.MissingQuote(code, year, key.Region, e.key, model.ReasonRateNotFound), nil
		}
		base, geo := price(row, key.Region)
		q := model.NewRateQuote(code, year, key.Region, e.key, base, e.profile.COLAFor(year), geo)
		q.EffectiveFrom = row.EffectiveFrom
		return q, nil
	})
}

// scheduleAllowed resolves the fee-schedule amount with modifiers applied.
func (e *engine) scheduleAllowed(ctx context.Context, req Request, price pricer) (Allowed, error) {
	if req.ServiceDate == nil {
		return Allowed{Source: SourceFeeSchedule, Reason: model.ReasonServiceDateMissing}, nil
	}
	if req.ProcedureCode == "" {
		return Allowed{Source: SourceFeeSchedule, Reason: model.ReasonRateNotFound}, nil
	}
	q, err := e.quote(ctx, req.ProcedureCode, req.ServiceDate.Year(), req.Region, price)
	if err != nil {
		return Allowed{}, err
	}
	a := Allowed{Source: SourceFeeSchedule, Quote: &q}
	if !q.Found {
		a.Reason = q.Reason
		return a, nil
	}
	// Quotes are per year, so a row starting mid-year also prices the
	// earlier part of that year.
	if req.ServiceDate.Before(q.EffectiveFrom) {
		e.log.Debug().
			Str("procedure_code", req.ProcedureCode).
			Time("service_date", *req.ServiceDate).
			Time("effective_from", q.EffectiveFrom).
			Msg("service date precedes the rate's effective date")
	}

	factor := e.profile.ModifierFactor(req.Modifiers)
	amount := q.FinalRate
	if !factor.Equal(one) {
		amount = amount.Mul(factor).RoundBank(2)
	}
	a.Amount = decimal.NewNullDecimal(amount)
	a.ModifierFactor = decimal.NewNullDecimal(factor)
	return a, nil
}

// assess classifies the payment and attaches codes and reason on a violation.
func (e *engine) assess(req Request, a Allowed, codes []string, reason string) Assessment {
	res := e.detector.Detect(req.PaidAmount, a.Amount)
	if !a.Amount.Valid && a.Reason != "" {
		res.Reason = a.Reason
	}
	if res.IsViolation {
		res.ViolationCodes = codes
		res.Reason = reason
	}
	return Assessment{Allowed: a, Result: res}
}

// baseIssues are the checks every payer applies.
func baseIssues(line model.ClaimLine) []string {
	var issues []string
	if line.ProcedureCode == "" {
		issues = append(issues, "procedure code is required")
	}
	if line.ServiceDate == nil {
		issues = append(issues, "service date is required")
	}
	return issues
}
