package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RatedLine is the enriched output record for one claim line.
type RatedLine struct {
	Line ClaimLine

	PayerKey       string // canonical adapter key, "" when the payer is unsupported
	RateSource     string // fee_schedule, contract, billed_charges
	BaseRate       decimal.NullDecimal
	COLAFactor     decimal.NullDecimal
	GeoFactor      decimal.NullDecimal
	ModifierFactor decimal.NullDecimal

	Result           ViolationResult
	ValidationIssues []string
	Err              string
}

// FileResult captures the outcome of processing one remittance file.
type FileResult struct {
	RunID      string
	FilePath   string
	FileSHA256 string

	SegmentsRead  int64
	ClaimsRead    int64
	ClaimsSkipped int64
	DatesIgnored  int64

	LinesParsed  int64
	LinesDropped int64
	DropReasons  map[DropReason]int64

	LinesRated            int64
	LinesUndeterminable   int64
	LinesUnsupportedPayer int64
	UnsupportedPayers     map[string]int64

	Violations        int64
	TotalUnderpayment decimal.Decimal

	Lines []RatedLine

	DurationParse time.Duration
	DurationRate  time.Duration
	DurationWrite time.Duration
	DurationTotal time.Duration
}
