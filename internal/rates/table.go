package rates

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/normalize"
)

//go:embed default_rates.yaml
var defaultRatesYAML []byte

// Table is an in-memory Source. It is read-only after construction.
type Table struct {
	rows map[string][]model.BaseRate // schedule/code -> periods
}

// yamlTable is the on-disk structure of a rate table file.
type yamlTable struct {
	Schedules map[string][]yamlRate `yaml:"schedules"`
}

type yamlRate struct {
	Code           string `yaml:"code"`
	Amount         string `yaml:"amount"`
	WorkRVU        string `yaml:"work_rvu"`
	PracticeRVU    string `yaml:"pe_rvu"`
	MalpracticeRVU string `yaml:"mp_rvu"`
	EffectiveFrom  string `yaml:"effective_from"`
	EffectiveTo    string `yaml:"effective_to"`
}

// NewTable builds a Table from rows.
func NewTable(rows []model.BaseRate) *Table {
	t := &Table{rows: make(map[string][]model.BaseRate)}
	for _, r := range rows {
		k := tableKey(r.Schedule, r.ProcedureCode)
		t.rows[k] = append(t.rows[k], r)
	}
	return t
}

// DefaultTable returns the built-in sample schedules.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultRatesYAML)
}

// DefaultRows returns the built-in sample schedules as flat rows.
func DefaultRows() ([]model.BaseRate, error) {
	return ParseRows(defaultRatesYAML)
}

// LoadRows reads a YAML rate table file into flat rows.
func LoadRows(path string) ([]model.BaseRate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table: %w", err)
	}
	return ParseRows(data)
}

// LoadTable reads a YAML rate table file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable parses YAML rate table content.
func ParseTable(data []byte) (*Table, error) {
	rows, err := ParseRows(data)
	if err != nil {
		return nil, err
	}
	return NewTable(rows), nil
}

// ParseRows parses YAML rate table content into flat rows, ordered by
// schedule then code.
func ParseRows(data []byte) ([]model.BaseRate, error) {
	var yt yamlTable
	if err := yaml.Unmarshal(data, &yt); err != nil {
		return nil, fmt.Errorf("parse rate table: %w", err)
	}

	schedules := make([]string, 0, len(yt.Schedules))
	for s := range yt.Schedules {
		schedules = append(schedules, s)
	}
	sort.Strings(schedules)

	var rows []model.BaseRate
	for _, sched := range schedules {
		for i, yr := range yt.Schedules[sched] {
			r, err := yr.toBaseRate(sched)
			if err != nil {
				return nil, fmt.Errorf("schedule %s row %d: %w", sched, i+1, err)
			}
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// BaseRates implements Source.
func (t *Table) BaseRates(_ context.Context, schedule, code string) ([]model.BaseRate, error) {
	return t.rows[tableKey(schedule, code)], nil
}

// Len returns the number of rows held.
func (t *Table) Len() int {
	n := 0
	for _, rs := range t.rows {
		n += len(rs)
	}
	return n
}

func (yr yamlRate) toBaseRate(schedule string) (model.BaseRate, error) {
	r := model.BaseRate{
		Schedule:      strings.ToLower(strings.TrimSpace(schedule)),
		ProcedureCode: normalize.NormalizeCode(yr.Code),
	}
	if r.ProcedureCode == "" {
		return r, fmt.Errorf("code is required")
	}

	var err error
	if r.Amount, err = optDecimal("amount", yr.Amount); err != nil {
		return r, err
	}
	if r.WorkRVU, err = optDecimal("work_rvu", yr.WorkRVU); err != nil {
		return r, err
	}
	if r.PracticeRVU, err = optDecimal("pe_rvu", yr.PracticeRVU); err != nil {
		return r, err
	}
	if r.MalpracticeRVU, err = optDecimal("mp_rvu", yr.MalpracticeRVU); err != nil {
		return r, err
	}
	if r.Amount.IsZero() && !r.HasRVU() {
		return r, fmt.Errorf("code %s: amount or RVUs required", r.ProcedureCode)
	}

	from := normalize.ParseDate(yr.EffectiveFrom)
	if from == nil {
		return r, fmt.Errorf("code %s: invalid effective_from %q", r.ProcedureCode, yr.EffectiveFrom)
	}
	r.EffectiveFrom = *from
	if yr.EffectiveTo != "" {
		to := normalize.ParseDate(yr.EffectiveTo)
		if to == nil {
			return r, fmt.Errorf("code %s: invalid effective_to %q", r.ProcedureCode, yr.EffectiveTo)
		}
		r.EffectiveTo = to
	}
	return r, nil
}

func optDecimal(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

func tableKey(schedule, code string) string {
	return schedule + "/" + code
}

// Compile-time check that Table satisfies Source.
var _ Source = (*Table)(nil)

// EffectiveDate is a helper for tests and seeds building rows by hand.
func EffectiveDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
