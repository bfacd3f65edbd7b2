package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/remitcheck/internal/model"
	embedsql "github.com/gyeh/remitcheck/internal/sql"
)

const seedBufferSize = 256

// SeedResult holds metrics from a rate-table load.
type SeedResult struct {
	RowsCopied int64
	RowsPurged int64
	Duration   time.Duration
}

// SeedRates COPY-loads rows into ref.fee_schedule_rates inside one
// transaction. With replace set, existing rows of every schedule present
// in rows are deleted first.
func SeedRates(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, rows []model.BaseRate, replace bool) (*SeedResult, error) {
	start := time.Now()
	res := &SeedResult{}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if replace {
		tag, err := tx.Exec(ctx, embedsql.DeleteSchedule, schedules(rows))
		if err != nil {
			return nil, fmt.Errorf("purge schedules: %w", err)
		}
		res.RowsPurged = tag.RowsAffected()
	}

	ch := make(chan model.BaseRate, seedBufferSize)
	go func() {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ref", "fee_schedule_rates"},
		model.FeeScheduleColumns(),
		NewChannelSource(ch),
	)
	if err != nil {
		// Drain so the producer exits.
		for range ch {
		}
		return nil, fmt.Errorf("copy rates: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	res.RowsCopied = copied
	res.Duration = time.Since(start)
	log.Info().
		Int64("rows_copied", res.RowsCopied).
		Int64("rows_purged", res.RowsPurged).
		Str("duration", res.Duration.String()).
		Msg("rate table seeded")
	return res, nil
}

// ScheduleCounts returns the number of stored rows per schedule.
func ScheduleCounts(ctx context.Context, pool *pgxpool.Pool) (map[string]int64, error) {
	rows, err := pool.Query(ctx, embedsql.CountScheduleRows)
	if err != nil {
		return nil, fmt.Errorf("count schedules: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan schedule count: %w", err)
		}
		out[name] = n
	}
	return out, rows.Err()
}

func schedules(rows []model.BaseRate) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if !seen[r.Schedule] {
			seen[r.Schedule] = true
			out = append(out, r.Schedule)
		}
	}
	return out
}
