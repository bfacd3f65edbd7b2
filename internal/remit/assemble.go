package remit

import (
	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/x12"
)

// Stats counts what the fold saw.
type Stats struct {
	Segments      int64
	Claims        int64
	ClaimsSkipped int64
	DatesIgnored  int64
	LinesEmitted  int64
	LinesDropped  int64
	DropReasons   map[model.DropReason]int64
	PayersSeen    map[string]int64 // payer name -> emitted lines
}

// Result is the output of assembling one segment stream.
type Result struct {
	Lines []model.ClaimLine
	Stats Stats
}

// Assemble folds every segment through Step and Finish.
func (a *Assembler) Assemble(segments []x12.Segment) Result {
	res := Result{
		Stats: Stats{
			DropReasons: make(map[model.DropReason]int64),
			PayersSeen:  make(map[string]int64),
		},
	}

	var st State
	var em Emit
	for _, seg := range segments {
		res.Stats.Segments++
		st, em = a.Step(st, seg)
		res.record(em)
	}
	_, em = a.Finish(st)
	res.record(em)

	a.log.Debug().
		Int64("segments", res.Stats.Segments).
		Int64("claims", res.Stats.Claims).
		Int64("lines", res.Stats.LinesEmitted).
		Int64("dropped", res.Stats.LinesDropped).
		Msg("assembly complete")
	return res
}

func (r *Result) record(em Emit) {
	if em.ClaimStarted {
		r.Stats.Claims++
	}
	if em.ClaimSkipped {
		r.Stats.ClaimsSkipped++
	}
	if em.DateIgnored {
		r.Stats.DatesIgnored++
	}
	for _, d := range em.Drops {
		r.Stats.LinesDropped++
		r.Stats.DropReasons[d]++
	}
	for _, l := range em.Lines {
		r.Stats.PayersSeen[l.PayerName]++
	}
	r.Stats.LinesEmitted += int64(len(em.Lines))
	r.Lines = append(r.Lines, em.Lines...)
}
