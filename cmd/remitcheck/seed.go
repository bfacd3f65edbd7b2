package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyeh/remitcheck/internal/db"
	"github.com/gyeh/remitcheck/internal/exitcode"
	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/rates"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a YAML rate table into Postgres",
	RunE:  runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.String("rates", "", "YAML rate table file (default: built-in sample schedules)")
	f.Bool("replace", false, "Delete existing rows of every schedule in the file first")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig(cmd)
	ctx := context.Background()

	if err := cfg.ValidateDSN(); err != nil {
		fail(log, exitcode.UsageError, err, "config validation failed")
	}

	var (
		rows []model.BaseRate
		err  error
	)
	if cfg.RatesPath != "" {
		rows, err = rates.LoadRows(cfg.RatesPath)
	} else {
		rows, err = rates.DefaultRows()
	}
	if err != nil {
		fail(log, exitcode.ValidationError, err, "rate table invalid")
	}

	pool, err := db.NewPool(ctx, cfg.DSN, db.PoolOptions{})
	if err != nil {
		fail(log, exitcode.DBConnError, err, "database connection failed")
	}
	defer pool.Close()

	replace, _ := cmd.Flags().GetBool("replace")
	res, err := db.SeedRates(ctx, pool, log, rows, replace)
	if err != nil {
		pool.Close()
		fail(log, exitcode.ValidationError, err, "seed failed")
	}

	counts, err := db.ScheduleCounts(ctx, pool)
	if err != nil {
		pool.Close()
		fail(log, exitcode.DBConnError, err, "count schedules failed")
	}
	fmt.Printf("Seed complete: %d rows copied, %d replaced (%.1fs)\n",
		res.RowsCopied, res.RowsPurged, res.Duration.Seconds())
	for sched, n := range counts {
		fmt.Printf("  %-16s %d rows\n", sched, n)
	}
	return nil
}
