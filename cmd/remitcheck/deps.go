package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/remitcheck/internal/config"
	"github.com/gyeh/remitcheck/internal/db"
	"github.com/gyeh/remitcheck/internal/exitcode"
	"github.com/gyeh/remitcheck/internal/payer"
	"github.com/gyeh/remitcheck/internal/ratecache"
	"github.com/gyeh/remitcheck/internal/rates"
)

const (
	memorySweepInterval = time.Minute
	redisKeyPrefix      = "remitcheck:"
	lookupStatementTime = 10 * time.Second
)

// runtimeDeps are the collaborators a rating run needs, plus their cleanup.
type runtimeDeps struct {
	registry *payer.Registry
	cache    *ratecache.Cache
	closers  []func()
}

func (d *runtimeDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// depsError carries the exit code for a failed dependency.
type depsError struct {
	code int
	err  error
}

func (e *depsError) Error() string { return e.err.Error() }
func (e *depsError) Unwrap() error { return e.err }

// buildDeps opens the rate source and cache store selected by c.
func buildDeps(ctx context.Context, c *config.Config, log zerolog.Logger) (*runtimeDeps, error) {
	d := &runtimeDeps{}

	var src rates.Source
	switch {
	case c.DSN != "":
		pool, err := db.NewPool(ctx, c.DSN, db.PoolOptions{StatementTimeout: lookupStatementTime})
		if err != nil {
			return nil, &depsError{code: exitcode.DBConnError, err: err}
		}
		d.closers = append(d.closers, pool.Close)
		src = rates.NewPGSource(pool, log)
		log.Info().Msg("rate source: postgres")
	case c.RatesPath != "":
		tbl, err := rates.LoadTable(c.RatesPath)
		if err != nil {
			return nil, &depsError{code: exitcode.ValidationError, err: err}
		}
		src = tbl
		log.Info().Str("path", c.RatesPath).Int("rows", tbl.Len()).Msg("rate source: table file")
	default:
		tbl, err := rates.DefaultTable()
		if err != nil {
			return nil, &depsError{code: exitcode.RateError, err: err}
		}
		src = tbl
		log.Info().Int("rows", tbl.Len()).Msg("rate source: built-in table")
	}

	var store ratecache.Store
	switch c.CacheBackend {
	case config.CacheRedis:
		client, err := ratecache.DialRedis(ctx, c.RedisURL)
		if err != nil {
			d.Close()
			return nil, &depsError{code: exitcode.DBConnError, err: err}
		}
		d.closers = append(d.closers, func() { _ = client.Close() })
		store = ratecache.NewRedisStore(client, redisKeyPrefix)
	default:
		mem := ratecache.NewMemoryStore(memorySweepInterval)
		d.closers = append(d.closers, mem.Stop)
		store = mem
	}
	d.cache = ratecache.New(store, c.CacheTTL, log)

	d.registry = payer.DefaultRegistry(payer.Deps{
		Source:   src,
		Cache:    d.cache,
		Profiles: c.Profiles,
		Log:      log,
	})
	return d, nil
}

func depsExitCode(err error) int {
	if de, ok := err.(*depsError); ok {
		return de.code
	}
	return exitcode.RateError
}

func describeCacheStats(s ratecache.Stats) string {
	return fmt.Sprintf("%d hits, %d misses, %d computed", s.Hits, s.Misses, s.Computes)
}
