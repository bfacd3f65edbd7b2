package violation_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/violation"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDetect_ToleranceBoundary(t *testing.T) {
	d := violation.NewDetector()
	tests := []struct {
		paid, allowed string
		want          bool
	}{
		{"99.99", "100.00", false}, // exactly one cent short
		{"99.98", "100.00", true},  // two cents short
		{"100.00", "100.00", false},
		{"120.00", "100.00", false}, // overpaid
		{"130.00", "168.27", true},
	}
	for _, tt := range tests {
		r := d.Detect(dec(tt.paid), decimal.NewNullDecimal(dec(tt.allowed)))
		if r.IsViolation != tt.want {
			t.Errorf("paid %s allowed %s: violation=%v, want %v", tt.paid, tt.allowed, r.IsViolation, tt.want)
		}
		want := dec(tt.allowed).Sub(dec(tt.paid))
		if !r.Delta.Valid || !r.Delta.Decimal.Equal(want) {
			t.Errorf("paid %s allowed %s: delta=%v, want %s", tt.paid, tt.allowed, r.Delta, want)
		}
	}
}

func TestDetect_Undeterminable(t *testing.T) {
	r := violation.NewDetector().Detect(dec("0"), decimal.NullDecimal{})
	if r.IsViolation {
		t.Error("unknown rate must not be a violation")
	}
	if r.AllowedAmount.Valid || r.Delta.Valid {
		t.Error("allowed and delta should be null")
	}
	if r.Reason != model.ReasonRateNotFound {
		t.Errorf("reason: %q", r.Reason)
	}
	if len(r.ViolationCodes) != 0 {
		t.Errorf("codes: %v", r.ViolationCodes)
	}
}

func TestDetect_CustomTolerance(t *testing.T) {
	d := violation.Detector{Tolerance: dec("1.00")}
	if d.Detect(dec("99.50"), decimal.NewNullDecimal(dec("100.00"))).IsViolation {
		t.Error("50 cents is within a one dollar tolerance")
	}
}
