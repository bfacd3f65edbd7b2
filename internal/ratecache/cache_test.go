package ratecache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/ratecache"
)

func quote(code string) model.RateQuote {
	return model.NewRateQuote(code, 2024, "nyc", "ny_medicaid",
		decimal.RequireFromString("158.00"), decimal.NewFromInt(1), decimal.RequireFromString("1.065"))
}

func newCache(t *testing.T) (*ratecache.Cache, *ratecache.MemoryStore) {
	t.Helper()
	store := ratecache.NewMemoryStore(0)
	t.Cleanup(store.Stop)
	return ratecache.New(store, time.Hour, zerolog.Nop()), store
}

func TestKeyString(t *testing.T) {
	k := ratecache.NewKey("90837", 2024, " NYC ", "ny_medicaid")
	assert.Equal(t, "rate:90837:2024:nyc:ny_medicaid", k.String())
	assert.Equal(t, "rate:90837:2024:-:aetna", ratecache.NewKey("90837", 2024, "", "aetna").String())
}

func TestGetOrCompute_HitSkipsCompute(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	key := ratecache.NewKey("90837", 2024, "nyc", "ny_medicaid")

	var calls int
	compute := func(context.Context) (model.RateQuote, error) {
		calls++
		return quote("90837"), nil
	}

	first, err := c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	second, err := c.GetOrCompute(ctx, key, func(context.Context) (model.RateQuote, error) {
		t.Fatal("compute must not run on a hit")
		return model.RateQuote{}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, second.FinalRate.Equal(decimal.RequireFromString("168.27")))

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Computes)
}

func TestGetOrCompute_SingleFlight(t *testing.T) {
	c, _ := newCache(t)
	key := ratecache.NewKey("90834", 2024, "nyc", "ny_medicaid")

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (model.RateQuote, error) {
		calls.Add(1)
		<-release
		return quote("90834"), nil
	}

	const n = 50
	var wg sync.WaitGroup
	results := make([]model.RateQuote, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), key, compute)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestGetOrCompute_ErrorsNotCached(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()
	key := ratecache.NewKey("90837", 2024, "nyc", "ny_medicaid")
	boom := errors.New("db down")

	_, err := c.GetOrCompute(ctx, key, func(context.Context) (model.RateQuote, error) {
		return model.RateQuote{}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	q, err := c.GetOrCompute(ctx, key, func(context.Context) (model.RateQuote, error) {
		return quote("90837"), nil
	})
	require.NoError(t, err)
	assert.True(t, q.Found)
}

func TestGetOrCompute_MissingQuoteIsCached(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	key := ratecache.NewKey("99999", 2024, "nyc", "ny_medicaid")

	var calls int
	compute := func(context.Context) (model.RateQuote, error) {
		calls++
		return model.MissingQuote("99999", 2024, "nyc", "ny_medicaid", model.ReasonRateNotFound), nil
	}
	for i := 0; i < 3; i++ {
		q, err := c.GetOrCompute(ctx, key, compute)
		require.NoError(t, err)
		assert.False(t, q.Found)
	}
	assert.Equal(t, 1, calls)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := ratecache.NewMemoryStore(0)
	defer store.Stop()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	c := ratecache.New(store, time.Hour, zerolog.Nop())
	ctx := context.Background()
	key := ratecache.NewKey("90837", 2024, "nyc", "ny_medicaid")

	var calls int
	compute := func(context.Context) (model.RateQuote, error) {
		calls++
		return quote("90837"), nil
	}

	held, err := c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Minute)
	_, err = c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// A quote handed out before expiry is unaffected.
	assert.True(t, held.FinalRate.Equal(decimal.RequireFromString("168.27")))
}

func TestMemoryStore_Stop(t *testing.T) {
	store := ratecache.NewMemoryStore(time.Millisecond)
	store.Stop()
	store.Stop()
}
