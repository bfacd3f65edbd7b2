package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gyeh/remitcheck/internal/exitcode"
	"github.com/gyeh/remitcheck/internal/ingest"
	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/normalize"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Parse-only dry run: claim and line counts, drops and payers seen",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().String("file", "", "Path to X12 835 remittance file (required)")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig(cmd)

	if err := cfg.Validate(); err != nil {
		fail(log, exitcode.UsageError, err, "config validation failed")
	}

	sha, err := normalize.FileHash(cfg.FilePath)
	if err != nil {
		fail(log, exitcode.InputError, err, "failed to hash file")
	}
	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		fail(log, exitcode.InputError, err, "failed to read file")
	}

	parsed, err := ingest.Parse(data, ingest.ParseOptions{
		Region:                cfg.Region,
		ServiceDateQualifiers: cfg.ServiceDateQualifiers,
	}, log)
	if err != nil {
		fail(log, exitcode.InputError, err, "failed to parse file")
	}
	st := parsed.Stats

	fmt.Println("=== remitcheck plan ===")
	fmt.Printf("File:          %s\n", cfg.FilePath)
	fmt.Printf("SHA-256:       %s\n", sha)
	fmt.Printf("Size:          %d bytes\n", len(data))
	fmt.Printf("Delimiters:    segment %q element %q component %q\n",
		parsed.Delimiters.Segment, parsed.Delimiters.Element, parsed.Delimiters.Component)
	fmt.Printf("Segments:      %d\n", st.Segments)
	fmt.Printf("Claims:        %d (%d skipped)\n", st.Claims, st.ClaimsSkipped)
	fmt.Printf("Lines:         %d\n", st.LinesEmitted)
	fmt.Printf("Dropped:       %d\n", st.LinesDropped)
	for _, r := range model.AllDropReasons {
		if n := st.DropReasons[r]; n > 0 {
			fmt.Printf("  %-24s %d\n", r, n)
		}
	}
	fmt.Printf("Dates ignored: %d\n", st.DatesIgnored)
	fmt.Println()
	fmt.Println("Payers seen:")

	names := make([]string, 0, len(st.PayersSeen))
	for n := range st.PayersSeen {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("  %-30s %d lines\n", n, st.PayersSeen[n])
	}
	return nil
}
