package payer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/normalize"
)

// KeyNYMedicaid is the registry key of the New York Medicaid adapter.
const KeyNYMedicaid = "ny_medicaid"

// NYMedicaidProfile returns the built-in New York Medicaid adjustments.
func NYMedicaidProfile() Profile {
	return Profile{
		COLA: map[int]decimal.Decimal{
			2024: d("1.000"),
			2025: d("1.0284"),
			2026: d("1.0284"),
		},
		Geo: map[string]decimal.Decimal{
			"nyc":        d("1.065"),
			"longisland": d("1.025"),
			"upstate":    d("1.000"),
		},
		State: "NY",
	}
}

// NYMedicaid enforces the New York behavioral health parity mandate: claims
// must be paid at least the Medicaid ambulatory rate, adjusted for COLA and
// region.
type NYMedicaid struct {
	*engine
}

// NewNYMedicaid is the Factory for NYMedicaid.
func NewNYMedicaid(deps Deps) Adapter {
	return &NYMedicaid{engine: newEngine(KeyNYMedicaid, NYMedicaidProfile(), deps)}
}

func (a *NYMedicaid) Key() string  { return KeyNYMedicaid }
func (a *NYMedicaid) Name() string { return "New York Medicaid" }
func (a *NYMedicaid) Type() Type   { return TypeMedicaid }

func (a *NYMedicaid) price(row model.BaseRate, region string) (decimal.Decimal, decimal.Decimal) {
	return row.Amount, a.profile.GeoFor(region)
}

// AllowedAmount implements Adapter.
func (a *NYMedicaid) AllowedAmount(ctx context.Context, req Request) (Allowed, error) {
	if o, ok := a.override(req); ok {
		return o, nil
	}
	return a.scheduleAllowed(ctx, req, a.price)
}

// DetectUnderpayment implements Adapter.
func (a *NYMedicaid) DetectUnderpayment(ctx context.Context, req Request) (Assessment, error) {
	allowed, err := a.AllowedAmount(ctx, req)
	if err != nil {
		return Assessment{}, err
	}
	codes := []string{model.CodeParityViolation, model.CodeFeeScheduleUnderpayment}
	if allowed.Source == SourceContract {
		codes = append(codes, model.CodeContractUnderpayment)
	}
	return a.assess(req, allowed, codes, "paid below the NY Medicaid parity rate"), nil
}

// ValidateClaim implements Adapter.
func (a *NYMedicaid) ValidateClaim(line model.ClaimLine) []string {
	issues := baseIssues(line)
	if line.ProcedureCode != "" && !normalize.IsBehavioralHealth(line.ProcedureCode) {
		issues = append(issues, fmt.Sprintf("procedure code %s is outside the behavioral health parity mandate", line.ProcedureCode))
	}
	if !a.profile.KnownRegion(line.GeoRegion) {
		issues = append(issues, fmt.Sprintf("region %q has no geographic adjustment; expected one of %s",
			line.GeoRegion, strings.Join(a.regions(), ", ")))
	}
	return issues
}

func (a *NYMedicaid) regions() []string {
	out := make([]string, 0, len(a.profile.Geo))
	for r := range a.profile.Geo {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
