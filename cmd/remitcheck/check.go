package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyeh/remitcheck/internal/exitcode"
	"github.com/gyeh/remitcheck/internal/ingest"
	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/payer"
	"github.com/gyeh/remitcheck/internal/ratecache"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a remittance file for underpaid claim lines",
	RunE:  runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.String("file", "", "Path to X12 835 remittance file (required)")
	f.String("region", "", "Geographic region applied to every line, e.g. nyc, upstate")
	f.String("payer", "", "Rate every line against this payer instead of the N1*PR name")
	f.String("rates", "", "YAML rate table file (default: built-in sample schedules)")
	f.String("out", "", "Write per-line results to this Parquet file")
	f.Int("workers", runtime.NumCPU(), "Concurrent line raters")
	f.String("cache", "memory", "Rate cache backend: memory or redis")
	f.Duration("cache-ttl", ratecache.DefaultTTL, "Rate cache entry lifetime")
	f.String("redis-url", "", "Redis URL for --cache=redis")
	_ = checkCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ValidateRun(); err != nil {
		fail(log, exitcode.UsageError, err, "config validation failed")
	}

	deps, err := buildDeps(ctx, cfg, log)
	if err != nil {
		fail(log, depsExitCode(err), err, "dependency setup failed")
	}
	defer deps.Close()

	res, err := ingest.Run(ctx, log, cfg, deps.registry)
	if err != nil {
		deps.Close()
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("check failed")
			os.Exit(phaseExitCode(pe))
		}
		fail(log, exitcode.RateError, err, "check failed")
	}

	printSummary(res)
	log.Debug().Str("cache", describeCacheStats(deps.cache.Stats())).Msg("rate cache")

	if res.LinesUnsupportedPayer > 0 {
		deps.Close()
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

func phaseExitCode(pe *ingest.PipelineError) int {
	switch pe.Phase {
	case ingest.PhaseConfigure:
		if errors.Is(pe.Err, payer.ErrUnsupportedPayer) {
			return exitcode.UnsupportedPayer
		}
		return exitcode.ValidationError
	case ingest.PhaseRead, ingest.PhaseDecode, ingest.PhaseWrite:
		return exitcode.InputError
	default:
		return exitcode.RateError
	}
}

func printSummary(res *model.FileResult) {
	fmt.Println("=== remitcheck ===")
	fmt.Printf("File:          %s\n", res.FilePath)
	fmt.Printf("SHA-256:       %s\n", res.FileSHA256)
	fmt.Printf("Run:           %s\n", res.RunID)
	fmt.Printf("Claims:        %d (%d skipped)\n", res.ClaimsRead, res.ClaimsSkipped)
	fmt.Printf("Lines parsed:  %d\n", res.LinesParsed)
	fmt.Printf("Lines dropped: %d\n", res.LinesDropped)
	for _, r := range model.AllDropReasons {
		if n := res.DropReasons[r]; n > 0 {
			fmt.Printf("  %-24s %d\n", r, n)
		}
	}
	fmt.Printf("Lines rated:   %d (%d undeterminable)\n", res.LinesRated, res.LinesUndeterminable)
	if res.LinesUnsupportedPayer > 0 {
		fmt.Printf("Unsupported:   %d lines\n", res.LinesUnsupportedPayer)
		names := make([]string, 0, len(res.UnsupportedPayers))
		for n := range res.UnsupportedPayers {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("  %-24s %d\n", n, res.UnsupportedPayers[n])
		}
	}
	fmt.Printf("Violations:    %d\n", res.Violations)
	fmt.Printf("Underpayment:  $%s\n", res.TotalUnderpayment.StringFixed(2))
	fmt.Printf("Duration:      %.2fs\n", res.DurationTotal.Seconds())

	for _, rl := range res.Lines {
		if !rl.Result.IsViolation {
			continue
		}
		fmt.Printf("  %s/%d %s paid %s allowed %s short %s [%s]\n",
			rl.Line.ClaimID, rl.Line.LineNumber, rl.Line.ProcedureCode,
			rl.Line.PaidAmount.StringFixed(2),
			rl.Result.AllowedAmount.Decimal.StringFixed(2),
			rl.Result.Delta.Decimal.StringFixed(2),
			rl.PayerKey)
	}
}
