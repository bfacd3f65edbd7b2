package payer

import (
	"strings"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Profile holds a payer's adjustment tables. Missing entries mean identity.
type Profile struct {
	// COLA maps service year to a cost-of-living factor.
	COLA map[int]decimal.Decimal
	// Geo maps lower-case region name to a geographic factor.
	Geo map[string]decimal.Decimal
	// Modifiers maps a procedure modifier to a payment factor.
	Modifiers map[string]decimal.Decimal
	// ContractRates maps procedure code to a negotiated allowed amount.
	ContractRates map[string]decimal.Decimal
	// State is the jurisdiction whose parity law applies, e.g. "NY".
	State string
	// PlanType selects a billed-charges multiplier (commercial payers only).
	PlanType string
}

// COLAFor returns the factor for year, or 1.
func (p Profile) COLAFor(year int) decimal.Decimal {
	if f, ok := p.COLA[year]; ok {
		return f
	}
	return one
}

// GeoFor returns the factor for region, or 1 when unmapped or blank.
func (p Profile) GeoFor(region string) decimal.Decimal {
	if f, ok := p.geo(region); ok {
		return f
	}
	return one
}

func (p Profile) geo(region string) (decimal.Decimal, bool) {
	f, ok := p.Geo[strings.ToLower(strings.TrimSpace(region))]
	return f, ok
}

// KnownRegion reports whether region has a geographic factor.
func (p Profile) KnownRegion(region string) bool {
	_, ok := p.geo(region)
	return ok
}

// ModifierFactor multiplies the factors of every listed modifier.
func (p Profile) ModifierFactor(mods []string) decimal.Decimal {
	f := one
	for _, m := range mods {
		if mf, ok := p.Modifiers[strings.ToUpper(m)]; ok {
			f = f.Mul(mf)
		}
	}
	return f
}

// ContractRate returns the negotiated rate for code, if any.
func (p Profile) ContractRate(code string) decimal.NullDecimal {
	if r, ok := p.ContractRates[code]; ok {
		return decimal.NewNullDecimal(r)
	}
	return decimal.NullDecimal{}
}

// Merge returns p with every entry set in o layered on top.
func (p Profile) Merge(o Profile) Profile {
	out := Profile{
		COLA:          mergeInt(p.COLA, o.COLA),
		Geo:           mergeStr(p.Geo, o.Geo, strings.ToLower),
		Modifiers:     mergeStr(p.Modifiers, o.Modifiers, strings.ToUpper),
		ContractRates: mergeStr(p.ContractRates, o.ContractRates, strings.ToUpper),
		State:         p.State,
		PlanType:      p.PlanType,
	}
	if o.State != "" {
		out.State = o.State
	}
	if o.PlanType != "" {
		out.PlanType = o.PlanType
	}
	return out
}

func mergeInt(a, b map[int]decimal.Decimal) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeStr(a, b map[string]decimal.Decimal, fold func(string) string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(a)+len(b))
	for k, v := range a {
		out[fold(k)] = v
	}
	for k, v := range b {
		out[fold(k)] = v
	}
	return out
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
