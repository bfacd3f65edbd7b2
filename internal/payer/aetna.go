package payer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/normalize"
)

// KeyAetna is the registry key of the Aetna commercial adapter.
const KeyAetna = "aetna"

// commercialUplift scales the reference schedule to a typical commercial rate.
var commercialUplift = d("1.20")

// planMultipliers are the fraction of billed charges allowed per plan type.
var planMultipliers = map[string]decimal.Decimal{
	"ppo_in_network":  d("0.85"),
	"ppo_out_network": d("0.60"),
	"hmo_in_network":  d("0.90"),
	"hmo_out_network": d("0.00"),
}

var defaultPlanMultiplier = d("0.80")

// priorAuthCodes require prior authorization under Aetna commercial plans.
var priorAuthCodes = map[string]bool{
	"90792": true, // psychiatric evaluation with medical services
	"90839": true, // crisis psychotherapy
	"96110": true, // developmental screening
	"97151": true, // adaptive behavior assessment
}

// AetnaProfile returns the built-in Aetna adjustments.
func AetnaProfile() Profile {
	return Profile{State: "NY"}
}

// Aetna estimates commercial allowed amounts. A contract rate wins; a
// configured plan type prices from billed charges; otherwise the reference
// schedule with a commercial uplift is used.
type Aetna struct {
	*engine
}

// NewAetna is the Factory for Aetna.
func NewAetna(deps Deps) Adapter {
	return &Aetna{engine: newEngine(KeyAetna, AetnaProfile(), deps)}
}

func (a *Aetna) Key() string  { return KeyAetna }
func (a *Aetna) Name() string { return "Aetna Commercial" }
func (a *Aetna) Type() Type   { return TypeCommercial }

func (a *Aetna) price(row model.BaseRate, region string) (decimal.Decimal, decimal.Decimal) {
	return row.Amount.Mul(commercialUplift), a.profile.GeoFor(region)
}

// PlanMultiplier returns the billed-charges fraction for a plan type.
func PlanMultiplier(plan string) decimal.Decimal {
	if m, ok := planMultipliers[strings.ToLower(plan)]; ok {
		return m
	}
	return defaultPlanMultiplier
}

// AllowedAmount implements Adapter.
func (a *Aetna) AllowedAmount(ctx context.Context, req Request) (Allowed, error) {
	if o, ok := a.override(req); ok {
		return o, nil
	}
	if a.profile.PlanType != "" && req.BilledAmount.Valid {
		amt := req.BilledAmount.Decimal.Mul(PlanMultiplier(a.profile.PlanType)).RoundBank(2)
		return Allowed{Amount: decimal.NewNullDecimal(amt), Source: SourceBilledCharges}, nil
	}
	return a.scheduleAllowed(ctx, req, a.price)
}

// DetectUnderpayment implements Adapter.
func (a *Aetna) DetectUnderpayment(ctx context.Context, req Request) (Assessment, error) {
	allowed, err := a.AllowedAmount(ctx, req)
	if err != nil {
		return Assessment{}, err
	}
	codes := []string{model.CodeCommercialUnderpayment}
	if allowed.Source == SourceContract {
		codes = append(codes, model.CodeContractUnderpayment)
	}
	if strings.EqualFold(a.profile.State, "NY") && normalize.IsBehavioralHealth(req.ProcedureCode) {
		codes = append(codes, model.CodeParityViolation)
	}
	return a.assess(req, allowed, codes, "paid below the expected commercial rate"), nil
}

// ValidateClaim implements Adapter.
func (a *Aetna) ValidateClaim(line model.ClaimLine) []string {
	issues := baseIssues(line)
	if priorAuthCodes[line.ProcedureCode] {
		issues = append(issues, fmt.Sprintf("prior authorization required for %s", line.ProcedureCode))
	}
	return issues
}
