package model

// ResultRow mirrors the Parquet schema written for each rated line.
// Money is stored as integer cents; adjustment factors as float64.
type ResultRow struct {
	RunID      string `parquet:"run_id"`
	LineHash   string `parquet:"line_hash"`
	ClaimID    string `parquet:"claim_id"`
	LineNumber int32  `parquet:"line_number"`

	PayerName    string  `parquet:"payer_name"`
	PayerKey     *string `parquet:"payer_key,optional"`
	PayerClaimID *string `parquet:"payer_claim_id,optional"`

	ServiceDate   *string `parquet:"service_date,optional"`
	ProcedureCode string  `parquet:"procedure_code"`
	Modifiers     *string `parquet:"modifiers,optional"`
	Units         int32   `parquet:"units"`
	GeoRegion     *string `parquet:"geo_region,optional"`

	BilledCents  *int64 `parquet:"billed_cents,optional"`
	PaidCents    int64  `parquet:"paid_cents"`
	AllowedCents *int64 `parquet:"allowed_cents,optional"`
	DeltaCents   *int64 `parquet:"delta_cents,optional"`

	BaseRateCents *int64   `parquet:"base_rate_cents,optional"`
	COLAFactor    *float64 `parquet:"cola_factor,optional"`
	GeoFactor     *float64 `parquet:"geo_factor,optional"`
	RateSource    *string  `parquet:"rate_source,optional"`

	IsViolation      bool    `parquet:"is_violation"`
	ViolationCodes   *string `parquet:"violation_codes,optional"`
	Reason           *string `parquet:"reason,optional"`
	ValidationIssues *string `parquet:"validation_issues,optional"`
	Error            *string `parquet:"error,optional"`
}

// ResultColumns lists the columns every results file must carry.
func ResultColumns() []string {
	return []string{"run_id", "claim_id", "procedure_code", "paid_cents", "is_violation"}
}
