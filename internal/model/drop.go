package model

// DropReason names why a service line produced no record.
type DropReason string

const (
	DropMissingProcedureCode DropReason = "missing_procedure_code"
	DropOrphanServiceLine    DropReason = "orphan_service_line"
	DropClaimHeaderInvalid   DropReason = "claim_header_invalid"
)

// AllDropReasons lists the drop reasons in reporting order.
var AllDropReasons = []DropReason{
	DropMissingProcedureCode,
	DropOrphanServiceLine,
	DropClaimHeaderInvalid,
}
