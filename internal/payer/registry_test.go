package payer_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/payer"
)

func TestRegistry_Aliases(t *testing.T) {
	r := payer.DefaultRegistry(newDeps(t, defaultSource(t), nil))

	tests := map[string]string{
		"MEDICARE":               payer.KeyMedicare,
		"cms":                    payer.KeyMedicare,
		"Medicare  Part B":       payer.KeyMedicare,
		"cms_medicare":           payer.KeyMedicare,
		"  New   York Medicaid ": payer.KeyNYMedicaid,
		"NY Medicaid":            payer.KeyNYMedicaid,
		"medicaid":               payer.KeyNYMedicaid,
		"Aetna PPO":              payer.KeyAetna,
		"aetna hmo":              payer.KeyAetna,
		"AETNA":                  payer.KeyAetna,
	}
	for name, want := range tests {
		a, err := r.Get(name)
		if err != nil {
			t.Errorf("Get(%q): %v", name, err)
			continue
		}
		if a.Key() != want {
			t.Errorf("Get(%q) = %s, want %s", name, a.Key(), want)
		}
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	r := payer.DefaultRegistry(newDeps(t, defaultSource(t), nil))

	_, err := r.Get("Blue Cross")
	if !errors.Is(err, payer.ErrUnsupportedPayer) {
		t.Fatalf("expected ErrUnsupportedPayer, got %v", err)
	}
	if r.IsSupported("unknown") {
		t.Error("unknown should not be supported")
	}
}

func TestRegistry_ExtraAlias(t *testing.T) {
	r := payer.DefaultRegistry(newDeps(t, defaultSource(t), nil))

	if err := r.Alias("Empire BCBS", "aetna ppo"); err != nil {
		t.Fatalf("Alias: %v", err)
	}
	a, err := r.Get("EMPIRE bcbs")
	if err != nil || a.Key() != payer.KeyAetna {
		t.Fatalf("Get after alias: %v %v", a, err)
	}

	if err := r.Alias("x", "nobody"); !errors.Is(err, payer.ErrUnsupportedPayer) {
		t.Errorf("alias to unknown key: got %v", err)
	}
}

func TestRegistry_Supported(t *testing.T) {
	r := payer.DefaultRegistry(newDeps(t, defaultSource(t), nil))
	got := r.Supported()
	want := []string{payer.KeyAetna, payer.KeyMedicare, payer.KeyNYMedicaid}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Supported()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if al := r.Aliases(payer.KeyMedicare); len(al) != 3 {
		t.Errorf("medicare aliases: %v", al)
	}
}

func TestCanonicalProfiles(t *testing.T) {
	d := decimal.RequireFromString
	got, err := payer.CanonicalProfiles(map[string]payer.Profile{
		"aetna":            {ContractRates: map[string]decimal.Decimal{"90834": d("110")}},
		"Aetna Commercial": {ContractRates: map[string]decimal.Decimal{"90837": d("250")}},
		"state plan":       {Geo: map[string]decimal.Decimal{"nyc": d("1.1")}},
	}, map[string]string{"State Plan": "NY Medicaid"})
	if err != nil {
		t.Fatalf("CanonicalProfiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want two adapter keys, got %v", got)
	}
	if rates := got[payer.KeyAetna].ContractRates; len(rates) != 2 {
		t.Errorf("aetna entries not merged: %v", rates)
	}
	if !got[payer.KeyNYMedicaid].GeoFor("nyc").Equal(d("1.1")) {
		t.Errorf("extra alias not resolved: %v", got)
	}

	_, err = payer.CanonicalProfiles(map[string]payer.Profile{"Blue Cross": {}}, nil)
	if !errors.Is(err, payer.ErrUnsupportedPayer) {
		t.Errorf("unknown payer: got %v", err)
	}
}
