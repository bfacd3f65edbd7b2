package db_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/db"
	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/payer"
	"github.com/gyeh/remitcheck/internal/ratecache"
	"github.com/gyeh/remitcheck/internal/rates"
)

const (
	testPort     = 15433
	testDB       = "remittest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var testDSN string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		fmt.Fprintln(os.Stderr, "SKIP: embedded postgres tests disabled by -short")
		os.Exit(0)
	}

	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30 * time.Second),
	)
	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}
	os.Exit(code)
}

// setupDB connects, drops the ref schema and re-applies migrations.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := db.NewPool(ctx, testDSN, db.PoolOptions{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, "DROP SCHEMA IF EXISTS ref CASCADE"); err != nil {
		pool.Close()
		t.Fatalf("drop schema: %v", err)
	}
	if err := db.ApplyMigrations(ctx, pool, zerolog.Nop()); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	pool := setupDB(t)
	if err := db.ApplyMigrations(context.Background(), pool, zerolog.Nop()); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestSeedRates_DefaultTable(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	rows, err := rates.DefaultRows()
	if err != nil {
		t.Fatalf("default rows: %v", err)
	}
	res, err := db.SeedRates(ctx, pool, zerolog.Nop(), rows, false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.RowsCopied != int64(len(rows)) {
		t.Errorf("copied %d, want %d", res.RowsCopied, len(rows))
	}

	counts, err := db.ScheduleCounts(ctx, pool)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := map[string]int64{}
	for _, r := range rows {
		want[r.Schedule]++
	}
	for sched, n := range want {
		if counts[sched] != n {
			t.Errorf("schedule %s: got %d rows, want %d", sched, counts[sched], n)
		}
	}

	// Seeding the same periods again violates the unique index unless replaced.
	if _, err := db.SeedRates(ctx, pool, zerolog.Nop(), rows, false); err == nil {
		t.Error("expected duplicate seed to fail")
	}
	res, err = db.SeedRates(ctx, pool, zerolog.Nop(), rows, true)
	if err != nil {
		t.Fatalf("replace seed: %v", err)
	}
	if res.RowsPurged != int64(len(rows)) {
		t.Errorf("purged %d, want %d", res.RowsPurged, len(rows))
	}
}

func TestPGSource_ReadsSeededRates(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	from2024 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to2024 := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	from2025 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.BaseRate{
		{Schedule: payer.KeyNYMedicaid, ProcedureCode: "90837", Amount: decimal.RequireFromString("158.00"), EffectiveFrom: from2024, EffectiveTo: &to2024},
		{Schedule: payer.KeyNYMedicaid, ProcedureCode: "90837", Amount: decimal.RequireFromString("162.50"), EffectiveFrom: from2025},
		{Schedule: payer.KeyMedicare, ProcedureCode: "90837",
			WorkRVU: decimal.RequireFromString("2.96"), PracticeRVU: decimal.RequireFromString("1.47"),
			MalpracticeRVU: decimal.RequireFromString("0.25"), EffectiveFrom: from2024},
	}
	if _, err := db.SeedRates(ctx, pool, zerolog.Nop(), rows, false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	src := rates.NewPGSource(pool, zerolog.Nop())
	got, err := src.BaseRates(ctx, payer.KeyNYMedicaid, "90837")
	if err != nil {
		t.Fatalf("BaseRates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d periods, want 2", len(got))
	}
	if got[0].EffectiveTo == nil || !got[0].EffectiveTo.Equal(to2024) {
		t.Errorf("first period end: %v", got[0].EffectiveTo)
	}
	row, ok := rates.EffectiveForYear(got, 2025)
	if !ok || !row.Amount.Equal(decimal.RequireFromString("162.50")) {
		t.Errorf("2025 row: %+v ok=%v", row, ok)
	}

	med, err := src.BaseRates(ctx, payer.KeyMedicare, "90837")
	if err != nil || len(med) != 1 {
		t.Fatalf("medicare rows: %v %v", med, err)
	}
	if !med[0].TotalRVU().Equal(decimal.RequireFromString("4.68")) {
		t.Errorf("total rvu: %s", med[0].TotalRVU())
	}

	none, err := src.BaseRates(ctx, payer.KeyNYMedicaid, "00000")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown code: %v %v", none, err)
	}
}

func TestPGSource_BacksAdapters(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	rows, err := rates.DefaultRows()
	if err != nil {
		t.Fatalf("default rows: %v", err)
	}
	if _, err := db.SeedRates(ctx, pool, zerolog.Nop(), rows, false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tbl, err := rates.DefaultTable()
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	fromDB := payer.NewNYMedicaid(adapterDeps(t, rates.NewPGSource(pool, zerolog.Nop())))
	fromYAML := payer.NewNYMedicaid(adapterDeps(t, tbl))

	svc := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	req := payer.Request{ProcedureCode: "90837", ServiceDate: &svc, Region: "nyc", Units: 1}
	a, err := fromDB.AllowedAmount(ctx, req)
	if err != nil {
		t.Fatalf("db allowed: %v", err)
	}
	b, err := fromYAML.AllowedAmount(ctx, req)
	if err != nil {
		t.Fatalf("yaml allowed: %v", err)
	}
	if !a.Amount.Valid || !a.Amount.Decimal.Equal(b.Amount.Decimal) {
		t.Errorf("postgres %v != yaml %v", a.Amount, b.Amount)
	}
}

func adapterDeps(t *testing.T, src rates.Source) payer.Deps {
	t.Helper()
	store := ratecache.NewMemoryStore(0)
	t.Cleanup(store.Stop)
	return payer.Deps{
		Source: src,
		Cache:  ratecache.New(store, time.Hour, zerolog.Nop()),
		Log:    zerolog.Nop(),
	}
}
