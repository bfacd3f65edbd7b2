package payer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
)

// KeyMedicare is the registry key of the Medicare adapter.
const KeyMedicare = "cms_medicare"

// GPCI holds the geographic practice cost indices of one locality.
type GPCI struct {
	Work        decimal.Decimal
	Practice    decimal.Decimal
	Malpractice decimal.Decimal
}

// MedicareConversionFactor converts RVUs to dollars.
var MedicareConversionFactor = d("33.06")

// medicareLocalities maps region names to Medicare payment localities.
var medicareLocalities = map[string]string{
	"manhattan":    "00",
	"nyc":          "00",
	"rest_of_ny":   "01",
	"poughkeepsie": "02",
	"queens":       "03",
}

var medicareGPCI = map[string]GPCI{
	"00": {Work: d("1.094"), Practice: d("1.264"), Malpractice: d("0.879")},
	"01": {Work: d("1.011"), Practice: d("1.088"), Malpractice: d("0.652")},
}

// medicareMUE are medically unlikely edit limits: max units per line per day.
var medicareMUE = map[string]int{
	"90791": 1,
	"90832": 3,
	"90834": 3,
	"90837": 2,
}

// MedicareProfile returns the built-in Medicare adjustments.
func MedicareProfile() Profile {
	return Profile{
		Modifiers: map[string]decimal.Decimal{
			"26": d("0.40"), // professional component
			"TC": d("0.60"), // technical component
			"50": d("1.50"), // bilateral
		},
	}
}

// Medicare prices codes from the physician fee schedule:
// sum(RVU × GPCI) × conversion factor.
type Medicare struct {
	*engine
}

// NewMedicare is the Factory for Medicare.
func NewMedicare(deps Deps) Adapter {
	return &Medicare{engine: newEngine(KeyMedicare, MedicareProfile(), deps)}
}

func (a *Medicare) Key() string  { return KeyMedicare }
func (a *Medicare) Name() string { return "Medicare Part B" }
func (a *Medicare) Type() Type   { return TypeMedicare }

// price expresses the GPCI formula as base × geo: base is the unadjusted
// fee (total RVU × CF) and geo is the RVU-weighted GPCI. Rows without RVUs
// are flat amounts.
func (a *Medicare) price(row model.BaseRate, region string) (decimal.Decimal, decimal.Decimal) {
	if !row.HasRVU() {
		return row.Amount, a.profile.GeoFor(region)
	}
	base := row.TotalRVU().Mul(MedicareConversionFactor)
	if f, ok := a.profile.geo(region); ok {
		return base, f
	}
	g, ok := medicareGPCI[medicareLocalities[strings.ToLower(region)]]
	if !ok {
		return base, one
	}
	weighted := row.WorkRVU.Mul(g.Work).
		Add(row.PracticeRVU.Mul(g.Practice)).
		Add(row.MalpracticeRVU.Mul(g.Malpractice))
	return base, weighted.Div(row.TotalRVU())
}

// AllowedAmount implements Adapter.
func (a *Medicare) AllowedAmount(ctx context.Context, req Request) (Allowed, error) {
	if o, ok := a.override(req); ok {
		return o, nil
	}
	return a.scheduleAllowed(ctx, req, a.price)
}

// DetectUnderpayment implements Adapter.
func (a *Medicare) DetectUnderpayment(ctx context.Context, req Request) (Assessment, error) {
	allowed, err := a.AllowedAmount(ctx, req)
	if err != nil {
		return Assessment{}, err
	}
	codes := []string{model.CodeMedicareUnderpayment, model.CodeFeeScheduleUnderpayment}
	if allowed.Source == SourceContract {
		codes = append(codes, model.CodeContractUnderpayment)
	}
	return a.assess(req, allowed, codes, "paid below the Medicare physician fee schedule"), nil
}

// ValidateClaim implements Adapter.
func (a *Medicare) ValidateClaim(line model.ClaimLine) []string {
	issues := baseIssues(line)
	if limit, ok := medicareMUE[line.ProcedureCode]; ok && line.Units > limit {
		issues = append(issues, fmt.Sprintf("%d units exceed the MUE limit of %d for %s",
			line.Units, limit, line.ProcedureCode))
	}
	return issues
}
