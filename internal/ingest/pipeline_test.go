package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/remitcheck/internal/config"
	"github.com/gyeh/remitcheck/internal/ingest"
	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/parquetio"
	"github.com/gyeh/remitcheck/internal/payer"
	"github.com/gyeh/remitcheck/internal/ratecache"
	"github.com/gyeh/remitcheck/internal/rates"
)

const claim1 = "N1*PR*NY Medicaid~" +
	"CLP*CLAIM1*1*300*210~" +
	"SVC*HC:90837*200*130*1~DTM*472*20240115~" +
	"SVC*HC:90834*100*80*1~DTM*472*20240115~"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func scenarioTable() *rates.Table {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return rates.NewTable([]model.BaseRate{
		{Schedule: payer.KeyNYMedicaid, ProcedureCode: "90837", Amount: dec("158.00"), EffectiveFrom: from},
		{Schedule: payer.KeyNYMedicaid, ProcedureCode: "90834", Amount: dec("110.00"), EffectiveFrom: from},
	})
}

func newRegistry(t *testing.T, src rates.Source) *payer.Registry {
	t.Helper()
	store := ratecache.NewMemoryStore(0)
	t.Cleanup(store.Stop)
	return payer.DefaultRegistry(payer.Deps{
		Source: src,
		Cache:  ratecache.New(store, time.Hour, zerolog.Nop()),
		Profiles: map[string]payer.Profile{
			payer.KeyNYMedicaid: {Geo: map[string]decimal.Decimal{"high-cost": dec("1.065")}},
		},
		Log: zerolog.Nop(),
	})
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remit.835")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newConfig(path string) *config.Config {
	return &config.Config{FilePath: path, Region: "high-cost", Workers: 4}
}

func run(t *testing.T, cfg *config.Config, src rates.Source) (*model.FileResult, error) {
	t.Helper()
	return ingest.Run(context.Background(), zerolog.Nop(), cfg, newRegistry(t, src))
}

func TestRun_ParityScenario(t *testing.T) {
	res, err := run(t, newConfig(writeInput(t, claim1)), scenarioTable())
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, int64(2), res.LinesParsed)
	assert.Equal(t, int64(2), res.LinesRated)
	assert.Equal(t, int64(2), res.Violations)
	assert.True(t, res.TotalUnderpayment.Equal(dec("75.42")), "total %s", res.TotalUnderpayment)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.FileSHA256, 64)

	want := []struct {
		code, allowed, delta string
	}{
		{"90837", "168.27", "38.27"},
		{"90834", "117.15", "37.15"},
	}
	for i, w := range want {
		rl := res.Lines[i]
		assert.Equal(t, w.code, rl.Line.ProcedureCode)
		assert.Equal(t, payer.KeyNYMedicaid, rl.PayerKey)
		assert.Equal(t, payer.SourceFeeSchedule, rl.RateSource)
		assert.True(t, rl.Result.AllowedAmount.Decimal.Equal(dec(w.allowed)), "line %d allowed %s", i, rl.Result.AllowedAmount.Decimal)
		assert.True(t, rl.Result.Delta.Decimal.Equal(dec(w.delta)), "line %d delta %s", i, rl.Result.Delta.Decimal)
		assert.True(t, rl.Result.IsViolation)
		assert.Contains(t, rl.Result.ViolationCodes, model.CodeParityViolation)
		assert.True(t, rl.GeoFactor.Decimal.Equal(dec("1.065")))
	}
}

func TestRun_UnsupportedPayerIsRecorded(t *testing.T) {
	input := claim1 + "N1*PR*Blue Cross~CLP*CLAIM2*1*100*50~SVC*HC:90834*100*50~DTM*472*20240201~"
	res, err := run(t, newConfig(writeInput(t, input)), scenarioTable())
	require.NoError(t, err)

	require.Len(t, res.Lines, 3)
	assert.Equal(t, int64(1), res.LinesUnsupportedPayer)
	assert.Equal(t, int64(1), res.UnsupportedPayers["Blue Cross"])
	assert.Equal(t, int64(2), res.LinesRated)

	last := res.Lines[2]
	assert.Equal(t, model.ReasonUnsupportedPayer, last.Err)
	assert.False(t, last.Result.IsViolation)
	assert.Empty(t, last.PayerKey)
}

func TestRun_PinnedPayer(t *testing.T) {
	input := strings.Replace(claim1, "NY Medicaid", "Somebody Else", 1)
	cfg := newConfig(writeInput(t, input))
	cfg.Payer = "medicaid"

	res, err := run(t, cfg, scenarioTable())
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.LinesUnsupportedPayer)
	assert.Equal(t, int64(2), res.Violations)
}

func TestRun_UnknownPinnedPayerFailsBeforeParsing(t *testing.T) {
	cfg := newConfig("/nonexistent/remit.835")
	cfg.Payer = "Blue Cross"

	_, err := run(t, cfg, scenarioTable())
	var pe *ingest.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ingest.PhaseConfigure, pe.Phase)
	assert.True(t, errors.Is(err, payer.ErrUnsupportedPayer))
}

func TestRun_PayerAliasesFromConfig(t *testing.T) {
	input := strings.Replace(claim1, "NY Medicaid", "NYS DOH", 1)
	cfg := newConfig(writeInput(t, input))
	cfg.PayerAliases = map[string]string{"nys doh": payer.KeyNYMedicaid}

	res, err := run(t, cfg, scenarioTable())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Violations)
}

func TestRun_InvalidUTF8(t *testing.T) {
	_, err := run(t, newConfig(writeInput(t, "CLP*C1*1*100*50~SVC*HC:\xff\xfe*10*5~")), scenarioTable())
	var pe *ingest.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ingest.PhaseDecode, pe.Phase)
	assert.ErrorIs(t, err, ingest.ErrInvalidEncoding)
}

func TestRun_MissingFile(t *testing.T) {
	_, err := run(t, newConfig(filepath.Join(t.TempDir(), "absent.835")), scenarioTable())
	var pe *ingest.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ingest.PhaseRead, pe.Phase)
}

func TestRun_GracefulDegradation(t *testing.T) {
	input := "N1*PR*NY Medicaid~" +
		"CLP**1*100*50~SVC*HC:90837*100*50~SVC*HC:90834*100*50~" +
		"CLP*GOOD*1*300*210~SVC*HC:90837*200*130~DTM*472*20240115~"

	res, err := run(t, newConfig(writeInput(t, input)), scenarioTable())
	require.NoError(t, err)

	require.Len(t, res.Lines, 1)
	assert.Equal(t, "GOOD", res.Lines[0].Line.ClaimID)
	assert.Equal(t, int64(2), res.LinesDropped)
	assert.Equal(t, int64(2), res.DropReasons[model.DropClaimHeaderInvalid])
	assert.Equal(t, int64(1), res.ClaimsSkipped)
}

func TestRun_UndeterminableLines(t *testing.T) {
	// 99213 has no schedule row; the second line has no service date.
	input := "N1*PR*NY Medicaid~CLP*C1*1*100*50~" +
		"SVC*HC:99213*100*50~DTM*472*20240115~" +
		"SVC*HC:90837*100*50~"

	res, err := run(t, newConfig(writeInput(t, input)), scenarioTable())
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.LinesUndeterminable)
	assert.Equal(t, int64(0), res.Violations)
	for _, rl := range res.Lines {
		assert.False(t, rl.Result.Determinable())
	}
	assert.Equal(t, model.ReasonRateNotFound, res.Lines[0].Result.Reason)
	assert.Equal(t, model.ReasonServiceDateMissing, res.Lines[1].Result.Reason)
	assert.Contains(t, res.Lines[1].ValidationIssues, "service date is required")
}

type brokenSource struct{}

func (brokenSource) BaseRates(context.Context, string, string) ([]model.BaseRate, error) {
	return nil, errors.New("connection refused")
}

func TestRun_RateSourceFailure(t *testing.T) {
	_, err := run(t, newConfig(writeInput(t, claim1)), brokenSource{})
	var pe *ingest.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ingest.PhaseRate, pe.Phase)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRun_PreservesLineOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString("N1*PR*NY Medicaid~")
	for c := 0; c < 50; c++ {
		fmt.Fprintf(&b, "CLP*C%03d*1*300*210~", c)
		for l := 0; l < 4; l++ {
			code := "90837"
			if l%2 == 1 {
				code = "90834"
			}
			fmt.Fprintf(&b, "SVC*HC:%s*200*%d~DTM*472*20240115~", code, 100+l)
		}
	}
	cfg := newConfig(writeInput(t, b.String()))
	cfg.Workers = 8

	res, err := run(t, cfg, scenarioTable())
	require.NoError(t, err)
	require.Len(t, res.Lines, 200)
	for i, rl := range res.Lines {
		assert.Equal(t, fmt.Sprintf("C%03d", i/4), rl.Line.ClaimID)
		assert.Equal(t, i%4+1, rl.Line.LineNumber)
	}
}

func TestRun_WritesParquet(t *testing.T) {
	input := claim1 + "N1*PR*Blue Cross~CLP*CLAIM2*1*100*50~SVC*HC:90834*100*50~DTM*472*20240201~"
	cfg := newConfig(writeInput(t, input))
	cfg.OutputPath = filepath.Join(t.TempDir(), "results.parquet")

	res, err := run(t, cfg, scenarioTable())
	require.NoError(t, err)

	r, err := parquetio.Open(cfg.OutputPath)
	require.NoError(t, err)
	defer r.Close()
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, res.RunID, rows[0].RunID)
	assert.Equal(t, int64(16827), *rows[0].AllowedCents)
	assert.Equal(t, int64(3827), *rows[0].DeltaCents)
	assert.Equal(t, "2024-01-15", *rows[0].ServiceDate)
	assert.True(t, rows[1].IsViolation)
	assert.Equal(t, "unsupported payer", *rows[2].Error)
	assert.Nil(t, rows[2].AllowedCents)
}
