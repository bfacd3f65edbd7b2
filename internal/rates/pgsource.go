package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
	embedsql "github.com/gyeh/remitcheck/internal/sql"
)

const (
	defaultQueryTimeout = 5 * time.Second
	defaultMaxRetries   = 3
)

// Querier is the subset of pgxpool.Pool used by PGSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSource reads base rates from ref.fee_schedule_rates. Each lookup runs
// under its own timeout and is retried with exponential backoff.
type PGSource struct {
	db         Querier
	log        zerolog.Logger
	timeout    time.Duration
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// PGOption customizes a PGSource.
type PGOption func(*PGSource)

// WithQueryTimeout sets the per-attempt timeout.
func WithQueryTimeout(d time.Duration) PGOption {
	return func(s *PGSource) { s.timeout = d }
}

// WithMaxRetries sets how many times a failed lookup is retried.
func WithMaxRetries(n uint64) PGOption {
	return func(s *PGSource) { s.maxRetries = n }
}

// WithBackOff replaces the exponential retry schedule.
func WithBackOff(fn func() backoff.BackOff) PGOption {
	return func(s *PGSource) { s.newBackOff = fn }
}

// NewPGSource creates a Postgres-backed Source.
func NewPGSource(db Querier, log zerolog.Logger, opts ...PGOption) *PGSource {
	s := &PGSource{
		db:         db,
		log:        log.With().Str("component", "rates.pg").Logger(),
		timeout:    defaultQueryTimeout,
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// BaseRates implements Source.
func (s *PGSource) BaseRates(ctx context.Context, schedule, code string) ([]model.BaseRate, error) {
	var out []model.BaseRate
	op := func() error {
		qctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		rows, err := s.query(qctx, schedule, code)
		if err != nil {
			return err
		}
		out = rows
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		s.log.Warn().Err(err).
			Str("schedule", schedule).
			Str("procedure_code", code).
			Dur("retry_in", wait).
			Msg("base rate lookup failed, retrying")
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("lookup %s/%s: %w", schedule, code, err)
	}
	return out, nil
}

func (s *PGSource) query(ctx context.Context, schedule, code string) ([]model.BaseRate, error) {
	rows, err := s.db.Query(ctx, embedsql.SelectBaseRates, schedule, code)
	if err != nil {
		return nil, retryable(err)
	}
	defer rows.Close()

	var out []model.BaseRate
	for rows.Next() {
		var (
			r                    model.BaseRate
			amount, work, pe, mp string
			effectiveTo          *time.Time
		)
		if err := rows.Scan(&r.Schedule, &r.ProcedureCode, &amount, &work, &pe, &mp,
			&r.EffectiveFrom, &effectiveTo); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("scan base rate: %w", err))
		}
		r.EffectiveTo = effectiveTo
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("amount %q: %w", amount, err))
		}
		if r.WorkRVU, err = decimal.NewFromString(work); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("work_rvu %q: %w", work, err))
		}
		if r.PracticeRVU, err = decimal.NewFromString(pe); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("practice_rvu %q: %w", pe, err))
		}
		if r.MalpracticeRVU, err = decimal.NewFromString(mp); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("malpractice_rvu %q: %w", mp, err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, retryable(err)
	}
	return out, nil
}

// retryable marks SQL-level errors (bad query, missing table) as permanent;
// connection and timeout failures stay retryable.
func retryable(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return backoff.Permanent(err)
	}
	return err
}

// Compile-time check that PGSource satisfies Source.
var _ Source = (*PGSource)(nil)
