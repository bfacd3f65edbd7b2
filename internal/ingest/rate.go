package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/payer"
)

// Resolver finds the adapter for a claim line.
type Resolver interface {
	Resolve(line model.ClaimLine) (payer.Adapter, error)
}

// RegistryResolver resolves by the line's payer name, or by a pinned payer
// when one is set.
type RegistryResolver struct {
	registry *payer.Registry
	pinned   payer.Adapter
}

// NewResolver returns a resolver over reg. A non-empty pin routes every
// line to that adapter; an unknown pin is an error.
func NewResolver(reg *payer.Registry, pin string) (*RegistryResolver, error) {
	r := &RegistryResolver{registry: reg}
	if pin != "" {
		a, err := reg.Get(pin)
		if err != nil {
			return nil, err
		}
		r.pinned = a
	}
	return r, nil
}

// Resolve implements Resolver.
func (r *RegistryResolver) Resolve(line model.ClaimLine) (payer.Adapter, error) {
	if r.pinned != nil {
		return r.pinned, nil
	}
	return r.registry.Get(line.PayerName)
}

// RateLines rates every line with at most workers in flight. Output
// order matches input order. Unsupported payers are recorded on the line;
// a rate-data failure aborts the phase.
func RateLines(ctx context.Context, lines []model.ClaimLine, res Resolver, workers int, log zerolog.Logger) ([]model.RatedLine, time.Duration, error) {
	start := time.Now()
	out := make([]model.RatedLine, len(lines))

	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range lines {
		g.Go(func() error {
			rl, err := rateLine(gctx, lines[i], res)
			if err != nil {
				return fmt.Errorf("claim %s line %d: %w", lines[i].ClaimID, lines[i].LineNumber, err)
			}
			out[i] = rl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, time.Since(start), err
	}

	dur := time.Since(start)
	log.Info().
		Int("lines", len(lines)).
		Int("workers", workers).
		Str("duration", dur.String()).
		Float64("lines_per_sec", perSecond(len(lines), dur)).
		Msg("rating complete")
	return out, dur, nil
}

func rateLine(ctx context.Context, line model.ClaimLine, res Resolver) (model.RatedLine, error) {
	rl := model.RatedLine{Line: line}

	a, err := res.Resolve(line)
	if errors.Is(err, payer.ErrUnsupportedPayer) {
		rl.Err = model.ReasonUnsupportedPayer
		rl.Result = model.ViolationResult{Reason: model.ReasonUnsupportedPayer}
		return rl, nil
	}
	if err != nil {
		return rl, err
	}

	as, err := a.DetectUnderpayment(ctx, payer.RequestFromLine(line))
	if err != nil {
		return rl, err
	}

	rl.PayerKey = a.Key()
	rl.RateSource = as.Allowed.Source
	rl.ModifierFactor = as.Allowed.ModifierFactor
	if q := as.Allowed.Quote; q != nil && q.Found {
		rl.BaseRate = decimal.NewNullDecimal(q.BaseRate)
		rl.COLAFactor = decimal.NewNullDecimal(q.COLAFactor)
		rl.GeoFactor = decimal.NewNullDecimal(q.GeoFactor)
	}
	rl.Result = as.Result
	rl.ValidationIssues = a.ValidateClaim(line)
	return rl, nil
}

func perSecond(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
