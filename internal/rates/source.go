// Package rates provides fee-schedule base rates keyed by procedure code.
package rates

import (
	"context"
	"sort"
	"time"

	"github.com/gyeh/remitcheck/internal/model"
)

// Source looks up the base-rate periods a fee schedule defines for a code.
// An empty result means the schedule has no rate for the code; errors are
// reserved for the lookup itself failing.
type Source interface {
	BaseRates(ctx context.Context, schedule, code string) ([]model.BaseRate, error)
}

// EffectiveForYear picks the row in force on January 1 of year. When none
// is, the first row that starts during the year is used. A cached quote is
// keyed by year, so every line of that year sees the same row.
func EffectiveForYear(rows []model.BaseRate, year int) (model.BaseRate, bool) {
	if len(rows) == 0 {
		return model.BaseRate{}, false
	}
	sorted := make([]model.BaseRate, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom)
	})

	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var best *model.BaseRate
	for i := range sorted {
		if sorted[i].EffectiveOn(jan1) {
			best = &sorted[i]
		}
	}
	if best != nil {
		return *best, true
	}
	for _, r := range sorted {
		if r.EffectiveFrom.Year() == year {
			return r, true
		}
	}
	return model.BaseRate{}, false
}
