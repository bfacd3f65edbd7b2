package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gyeh/remitcheck/internal/db"
	"github.com/gyeh/remitcheck/internal/exitcode"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply rate table schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig(cmd)
	ctx := context.Background()

	if err := cfg.ValidateDSN(); err != nil {
		fail(log, exitcode.UsageError, err, "config validation failed")
	}

	pool, err := db.NewPool(ctx, cfg.DSN, db.PoolOptions{})
	if err != nil {
		fail(log, exitcode.DBConnError, err, "database connection failed")
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		pool.Close()
		fail(log, exitcode.ValidationError, err, "migration failed")
	}
	return nil
}
