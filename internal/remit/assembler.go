// Package remit reconstructs claim lines from a tokenized 835 remittance.
//
// Assembly is a left fold over the segment stream. State carries the payer
// seen so far and the claim currently being accumulated; Step consumes one
// segment and returns the next State plus whatever it emitted. A claim's
// lines are emitted when the next claim header arrives or the stream ends.
package remit

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/normalize"
	"github.com/gyeh/remitcheck/internal/x12"
)

// Segment identifiers the assembler reacts to.
const (
	segPayer   = "N1"
	segClaim   = "CLP"
	segService = "SVC"
	segDate    = "DTM"
)

// payerEntityCode marks the N1 loop that identifies the paying organization.
const payerEntityCode = "PR"

// DefaultServiceDateQualifiers are the DTM qualifiers treated as a date of
// service: 472 (service date) and 150 (service period start).
var DefaultServiceDateQualifiers = []string{"472", "150"}

// Options configure an Assembler.
type Options struct {
	// Region is the caller-supplied geographic region stamped on every line.
	Region string
	// ServiceDateQualifiers is the DTM qualifier allow-list. Empty means the defaults.
	ServiceDateQualifiers []string
	// ComponentSeparator splits composite elements such as "HC:90837". Zero means ':'.
	ComponentSeparator byte
}

// Assembler holds immutable configuration for the fold.
type Assembler struct {
	region     string
	qualifiers map[string]bool
	compSep    byte
	log        zerolog.Logger
}

// New creates an Assembler.
func New(opts Options, log zerolog.Logger) *Assembler {
	quals := opts.ServiceDateQualifiers
	if len(quals) == 0 {
		quals = DefaultServiceDateQualifiers
	}
	qm := make(map[string]bool, len(quals))
	for _, q := range quals {
		qm[strings.TrimSpace(q)] = true
	}
	sep := opts.ComponentSeparator
	if sep == 0 {
		sep = x12.DefaultComponentSeparator
	}
	return &Assembler{
		region:     opts.Region,
		qualifiers: qm,
		compSep:    sep,
		log:        log.With().Str("component", "assembler").Logger(),
	}
}

// State is the fold accumulator. The zero value is the initial state.
type State struct {
	payer string
	open  bool
	claim openClaim
}

// Payer returns the most recently identified payer name.
func (s State) Payer() string { return s.payer }

// ClaimOpen reports whether a claim header is being accumulated.
func (s State) ClaimOpen() bool { return s.open }

type openClaim struct {
	id           string
	status       string
	payerClaimID string
	payer        string
	headerDate   *time.Time
	skip         bool // header was malformed; its lines are dropped
	lines        *lineNode
}

// lineNode is an immutable list of pending lines, newest first. Steps add
// or replace the head and never touch older nodes, so earlier States keep
// their view and each transition is O(1).
type lineNode struct {
	line model.ClaimLine
	prev *lineNode
	n    int // lines up to and including this one
}

func (l *lineNode) count() int {
	if l == nil {
		return 0
	}
	return l.n
}

// Emit is what one transition produced.
type Emit struct {
	Lines        []model.ClaimLine
	Drops        []model.DropReason
	ClaimStarted bool
	ClaimSkipped bool
	DateIgnored  bool
}

// Step applies one segment to the state.
func (a *Assembler) Step(st State, seg x12.Segment) (State, Emit) {
	switch seg.ID() {
	case segPayer:
		return a.onPayer(st, seg), Emit{}
	case segClaim:
		return a.onClaim(st, seg)
	case segService:
		return a.onService(st, seg)
	case segDate:
		return a.onDate(st, seg)
	default:
		return st, Emit{}
	}
}

// Finish flushes the open claim at end of stream.
func (a *Assembler) Finish(st State) (State, Emit) {
	lines := flush(st)
	st.open = false
	st.claim = openClaim{}
	return st, Emit{Lines: lines}
}

func (a *Assembler) onPayer(st State, seg x12.Segment) State {
	if !strings.EqualFold(seg.Element(1), payerEntityCode) || !seg.Has(2) {
		return st
	}
	name := seg.Element(2)
	st.payer = name
	// A payer loop inside a claim, before any service line, belongs to that claim.
	if st.open && (st.claim.payer == "" || st.claim.lines == nil) {
		st.claim.payer = name
	}
	return st
}

func (a *Assembler) onClaim(st State, seg x12.Segment) (State, Emit) {
	em := Emit{Lines: flush(st), ClaimStarted: true}

	c := openClaim{
		id:           seg.Element(1),
		status:       seg.Element(2),
		payerClaimID: seg.Element(7),
		payer:        st.payer,
	}
	if c.id == "" {
		c.skip = true
	}
	if seg.Has(4) {
		if _, ok := normalize.ParseAmount(seg.Element(4)); !ok {
			c.skip = true
		}
	}
	if c.skip {
		em.ClaimSkipped = true
		a.log.Warn().
			Str("claim_id", c.id).
			Str("segment", seg.String()).
			Msg("malformed claim header, skipping claim")
	}

	st.open = true
	st.claim = c
	return st, em
}

func (a *Assembler) onService(st State, seg x12.Segment) (State, Emit) {
	if !st.open {
		a.log.Warn().Str("segment", seg.String()).Msg("service line outside a claim, ignoring")
		return st, Emit{Drops: []model.DropReason{model.DropOrphanServiceLine}}
	}
	if st.claim.skip {
		return st, Emit{Drops: []model.DropReason{model.DropClaimHeaderInvalid}}
	}

	code, mods := a.procedure(seg.Element(1))
	if code == "" {
		a.log.Debug().
			Str("claim_id", st.claim.id).
			Str("segment", seg.String()).
			Msg("service line without procedure code, dropping")
		return st, Emit{Drops: []model.DropReason{model.DropMissingProcedureCode}}
	}

	paid, _ := normalize.ParseAmount(seg.Element(3))
	line := model.ClaimLine{
		ClaimID:       st.claim.id,
		LineNumber:    st.claim.lines.count() + 1,
		PayerClaimID:  st.claim.payerClaimID,
		ClaimStatus:   st.claim.status,
		ServiceDate:   st.claim.headerDate,
		ProcedureCode: code,
		Modifiers:     mods,
		Units:         parseUnits(seg.Element(4)),
		BilledAmount:  normalize.ParseNullAmount(seg.Element(2)),
		PaidAmount:    paid,
		GeoRegion:     a.region,
	}

	st.claim.lines = &lineNode{line: line, prev: st.claim.lines, n: st.claim.lines.count() + 1}
	return st, Emit{}
}

func (a *Assembler) onDate(st State, seg x12.Segment) (State, Emit) {
	if !a.qualifiers[seg.Element(1)] {
		return st, Emit{DateIgnored: true}
	}
	d := normalize.ParseX12Date(seg.Element(2))
	if d == nil || !st.open || st.claim.skip {
		return st, Emit{DateIgnored: true}
	}

	if head := st.claim.lines; head != nil {
		l := head.line
		l.ServiceDate = d
		st.claim.lines = &lineNode{line: l, prev: head.prev, n: head.n}
	} else {
		st.claim.headerDate = d
	}
	return st, Emit{}
}

// procedure extracts the code and modifiers from SVC01, which is either a
// bare code or QUALIFIER:CODE[:MOD...].
func (a *Assembler) procedure(elem string) (string, []string) {
	parts := x12.SplitComposite(elem, a.compSep)
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return normalize.NormalizeCode(parts[0]), nil
	default:
		return normalize.NormalizeCode(parts[1]), normalize.NormalizeCodes(parts[2:])
	}
}

// flush turns the open claim's pending lines into output records.
func flush(st State) []model.ClaimLine {
	if !st.open || st.claim.skip || st.claim.lines == nil {
		return nil
	}
	payer := st.claim.payer
	if payer == "" {
		payer = model.UnknownPayer
	}
	out := make([]model.ClaimLine, st.claim.lines.n)
	for node := st.claim.lines; node != nil; node = node.prev {
		l := node.line
		l.PayerName = payer
		out[node.n-1] = l
	}
	return out
}

func parseUnits(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1
	}
	// Units are sometimes sent as decimals ("1.0").
	d, err := decimal.NewFromString(s)
	if err != nil || d.IntPart() < 1 {
		return 1
	}
	return int(d.IntPart())
}
