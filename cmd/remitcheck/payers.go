package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyeh/remitcheck/internal/exitcode"
	"github.com/gyeh/remitcheck/internal/payer"
	"github.com/gyeh/remitcheck/internal/rates"
)

var payersCmd = &cobra.Command{
	Use:   "payers",
	Short: "List supported payers and their aliases",
	RunE:  runPayers,
}

func init() {
	rootCmd.AddCommand(payersCmd)
}

func runPayers(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig(cmd)

	tbl, err := rates.DefaultTable()
	if err != nil {
		fail(log, exitcode.RateError, err, "load built-in rates")
	}
	reg := payer.DefaultRegistry(payer.Deps{Source: tbl, Profiles: cfg.Profiles, Log: log})
	for alias, key := range cfg.PayerAliases {
		if err := reg.Alias(alias, key); err != nil {
			fail(log, exitcode.ValidationError, err, "invalid payer alias")
		}
	}

	for _, key := range reg.Supported() {
		a, _ := reg.Get(key)
		fmt.Printf("%-14s %-10s %s\n", key, a.Type(), a.Name())
		if al := reg.Aliases(key); len(al) > 0 {
			fmt.Printf("  aliases: %s\n", strings.Join(al, ", "))
		}
	}
	return nil
}
