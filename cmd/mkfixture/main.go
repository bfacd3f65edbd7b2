// mkfixture writes a synthetic X12 835 remittance for load tests and fixtures,
// or summarizes a results Parquet file written by remitcheck check --out.
// Usage: go run ./cmd/mkfixture --out testdata/synthetic.835 --claims 500 --lines 4 --corrupt 0.02
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/parquetio"
)

var procedureCodes = []string{"90791", "90832", "90834", "90837", "90839", "90846", "90847", "90853"}

var payerNames = []string{"NY Medicaid", "Medicare Part B", "Aetna PPO", "Blue Cross"}

var modifierChoices = []string{"", "", "", "", "HJ", "95", "26"}

func main() {
	out := flag.String("out", "testdata/synthetic.835", "output 835 file")
	claims := flag.Int("claims", 200, "number of claims")
	lines := flag.Int("lines", 3, "max service lines per claim")
	seed := flag.Int64("seed", 1, "random seed")
	corrupt := flag.Float64("corrupt", 0, "fraction of claims with an unusable CLP header")
	payer := flag.String("payer", "", "emit this payer only (default: rotate through a mix)")
	check := flag.String("check", "", "summarize this results Parquet file instead of generating")
	flag.Parse()

	if *check != "" {
		if err := summarize(*check); err != nil {
			fmt.Fprintf(os.Stderr, "check: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *claims < 1 || *lines < 1 {
		fmt.Fprintln(os.Stderr, "--claims and --lines must be positive")
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	g := &generator{
		rng:     rand.New(rand.NewSource(*seed)),
		w:       bufio.NewWriter(f),
		maxLine: *lines,
		corrupt: *corrupt,
		payer:   *payer,
	}
	g.envelope()
	for i := 0; i < *claims; i++ {
		g.claim(i)
	}
	g.trailer()
	if err := g.w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d claims (%d service lines, %d corrupt headers) to %s\n",
		*claims, g.svcLines, g.corrupted, *out)
}

type generator struct {
	rng     *rand.Rand
	w       *bufio.Writer
	maxLine int
	corrupt float64
	payer   string

	lastPayer string
	segments  int
	svcLines  int
	corrupted int
}

func (g *generator) seg(format string, args ...any) {
	fmt.Fprintf(g.w, format, args...)
	g.w.WriteString("~\n")
	g.segments++
}

func (g *generator) envelope() {
	now := time.Now().UTC()
	fmt.Fprintf(g.w, "ISA*00*          *00*          *ZZ*%-15s*ZZ*%-15s*%s*%s*^*00501*000000001*0*P*:~\n",
		"PAYERSENDER", "PROVIDERRCV", now.Format("060102"), now.Format("1504"))
	g.seg("GS*HP*PAYERSENDER*PROVIDERRCV*%s*%s*1*X*005010X221A1", now.Format("20060102"), now.Format("1504"))
	g.seg("ST*835*0001")
	g.seg("BPR*I*0*C*ACH")
}

func (g *generator) trailer() {
	// ST through SE inclusive; GS was counted and SE is not yet.
	g.seg("SE*%d*0001", g.segments)
	g.seg("GE*1*1")
	g.seg("IEA*1*000000001")
}

func (g *generator) claim(i int) {
	name := g.payer
	if name == "" {
		name = payerNames[g.rng.Intn(len(payerNames))]
	}
	if name != g.lastPayer {
		g.seg("N1*PR*%s", name)
		g.lastPayer = name
	}

	n := 1 + g.rng.Intn(g.maxLine)
	billed := make([]decimal.Decimal, n)
	paid := make([]decimal.Decimal, n)
	totalBilled, totalPaid := decimal.Zero, decimal.Zero
	for j := 0; j < n; j++ {
		billed[j] = decimal.New(int64(12000+g.rng.Intn(12000)), -2)
		// Paid between 55% and 105% of billed.
		pct := decimal.New(int64(55+g.rng.Intn(51)), -2)
		paid[j] = billed[j].Mul(pct).Round(2)
		totalBilled = totalBilled.Add(billed[j])
		totalPaid = totalPaid.Add(paid[j])
	}

	claimID := fmt.Sprintf("CLM%06d", i+1)
	if g.corrupt > 0 && g.rng.Float64() < g.corrupt {
		g.seg("CLP**1*%s*N/A", totalBilled.StringFixed(2))
		g.corrupted++
	} else {
		g.seg("CLP*%s*1*%s*%s**MC*PCN%06d", claimID, totalBilled.StringFixed(2), totalPaid.StringFixed(2), i+1)
	}

	day := time.Date(2024+g.rng.Intn(2), time.Month(1+g.rng.Intn(12)), 1+g.rng.Intn(28), 0, 0, 0, 0, time.UTC)
	g.seg("DTM*232*%s", day.Format("20060102"))
	for j := 0; j < n; j++ {
		code := "HC:" + procedureCodes[g.rng.Intn(len(procedureCodes))]
		if m := modifierChoices[g.rng.Intn(len(modifierChoices))]; m != "" {
			code += ":" + m
		}
		g.seg("SVC*%s*%s*%s*1", code, billed[j].StringFixed(2), paid[j].StringFixed(2))
		g.seg("DTM*472*%s", day.Format("20060102"))
		g.svcLines++
	}
}

func summarize(path string) error {
	r, err := parquetio.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	rows, err := r.ReadAll()
	if err != nil {
		return err
	}

	var violations, unsupported, undeterminable int
	var shortCents int64
	byPayer := make(map[string]int)
	for _, row := range rows {
		if row.PayerKey != nil {
			byPayer[*row.PayerKey]++
		}
		switch {
		case row.Error != nil:
			unsupported++
		case row.AllowedCents == nil:
			undeterminable++
		case row.IsViolation:
			violations++
			shortCents += *row.DeltaCents
		}
	}

	fmt.Printf("Rows: %d\n", len(rows))
	fmt.Printf("  %-16s %d\n", "violations", violations)
	fmt.Printf("  %-16s %d\n", "undeterminable", undeterminable)
	fmt.Printf("  %-16s %d\n", "unsupported", unsupported)
	fmt.Printf("  %-16s $%s\n", "underpaid", decimal.New(shortCents, -2).StringFixed(2))
	for k, n := range byPayer {
		fmt.Printf("  payer %-10s %d\n", k, n)
	}
	return nil
}
