package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount parses a monetary element such as "130.00" or "-12.5".
// ok is false when the element is blank or not a number.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseNullAmount is ParseAmount returning a NullDecimal.
func ParseNullAmount(s string) decimal.NullDecimal {
	d, ok := ParseAmount(s)
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}

// Cents converts a dollar amount to int64 cents, rounding half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// DollarsToCents converts a nullable dollar amount to nullable int64 cents.
func DollarsToCents(d decimal.NullDecimal) *int64 {
	if !d.Valid {
		return nil
	}
	c := Cents(d.Decimal)
	return &c
}

// FactorToFloat converts a nullable adjustment factor for storage.
func FactorToFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
