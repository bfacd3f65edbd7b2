// Package ingest drives one remittance file through the parity check:
// decode, parse, rate, and optionally write results.
package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/config"
	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/normalize"
	"github.com/gyeh/remitcheck/internal/payer"
)

// Pipeline phases, as reported by PipelineError.
const (
	PhaseConfigure = "configure"
	PhaseRead      = "read"
	PhaseDecode    = "decode"
	PhaseRate      = "rate"
	PhaseWrite     = "write"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run executes the full pipeline for cfg.FilePath: configure → read →
// decode/parse → rate → write.
func Run(ctx context.Context, log zerolog.Logger, cfg *config.Config, reg *payer.Registry) (*model.FileResult, error) {
	totalStart := time.Now()
	runID := uuid.New()
	log = log.With().Str("run_id", runID.String()).Logger()

	// Phase 1: Configure
	for alias, key := range cfg.PayerAliases {
		if err := reg.Alias(alias, key); err != nil {
			return nil, &PipelineError{Phase: PhaseConfigure, Err: err}
		}
	}
	resolver, err := NewResolver(reg, cfg.Payer)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseConfigure, Err: err}
	}

	// Phase 2: Read
	log.Info().Str("file", cfg.FilePath).Msg("reading remittance")
	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseRead, Err: err}
	}

	// Phase 3: Decode and parse
	parsed, err := Parse(data, ParseOptions{
		Region:                cfg.Region,
		ServiceDateQualifiers: cfg.ServiceDateQualifiers,
	}, log)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseDecode, Err: err}
	}

	// Phase 4: Rate
	rated, rateDur, err := RateLines(ctx, parsed.Lines, resolver, cfg.Workers, log)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseRate, Err: err}
	}

	res := summarize(parsed, rated)
	res.RunID = runID.String()
	res.FilePath = cfg.FilePath
	res.FileSHA256 = normalize.BytesHash(data)
	res.DurationParse = parsed.Duration
	res.DurationRate = rateDur

	// Phase 5: Write
	if cfg.OutputPath != "" {
		dur, err := WriteResults(cfg.OutputPath, runID, rated, log)
		if err != nil {
			return nil, &PipelineError{Phase: PhaseWrite, Err: err}
		}
		res.DurationWrite = dur
	}

	res.DurationTotal = time.Since(totalStart)
	if res.LinesUnsupportedPayer > 0 {
		ev := log.Warn().Int64("lines", res.LinesUnsupportedPayer)
		for name, n := range res.UnsupportedPayers {
			ev = ev.Int64(name, n)
		}
		ev.Msg("lines with unsupported payer")
	}
	log.Info().
		Int64("lines_parsed", res.LinesParsed).
		Int64("lines_dropped", res.LinesDropped).
		Int64("lines_rated", res.LinesRated).
		Int64("violations", res.Violations).
		Str("total_underpayment", res.TotalUnderpayment.StringFixed(2)).
		Str("total_duration", res.DurationTotal.String()).
		Msg("check complete")

	return res, nil
}

// summarize tallies parse statistics and rated lines into a FileResult.
func summarize(parsed *ParseResult, rated []model.RatedLine) *model.FileResult {
	st := parsed.Stats
	res := &model.FileResult{
		SegmentsRead:      st.Segments,
		ClaimsRead:        st.Claims,
		ClaimsSkipped:     st.ClaimsSkipped,
		DatesIgnored:      st.DatesIgnored,
		LinesParsed:       st.LinesEmitted,
		LinesDropped:      st.LinesDropped,
		DropReasons:       st.DropReasons,
		UnsupportedPayers: make(map[string]int64),
		TotalUnderpayment: decimal.Zero,
		Lines:             rated,
	}

	for i := range rated {
		rl := &rated[i]
		if rl.Err == model.ReasonUnsupportedPayer {
			res.LinesUnsupportedPayer++
			res.UnsupportedPayers[rl.Line.PayerName]++
			continue
		}
		res.LinesRated++
		if !rl.Result.Determinable() {
			res.LinesUndeterminable++
		}
		if rl.Result.IsViolation {
			res.Violations++
			res.TotalUnderpayment = res.TotalUnderpayment.Add(rl.Result.Underpayment())
		}
	}
	return res
}
