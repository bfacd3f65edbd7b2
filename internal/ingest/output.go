package ingest

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/remitcheck/internal/model"
	"github.com/gyeh/remitcheck/internal/normalize"
	"github.com/gyeh/remitcheck/internal/parquetio"
)

const writeBatchSize = 1000

// WriteResults writes one Parquet row per rated line to path.
func WriteResults(path string, runID uuid.UUID, lines []model.RatedLine, log zerolog.Logger) (time.Duration, error) {
	start := time.Now()
	w, err := parquetio.Create(path)
	if err != nil {
		return 0, err
	}

	batch := make([]model.ResultRow, 0, writeBatchSize)
	for i := range lines {
		batch = append(batch, normalize.ToResultRow(&lines[i], runID))
		if len(batch) == writeBatchSize {
			if err := w.Write(batch); err != nil {
				w.Abort()
				return 0, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := w.Write(batch); err != nil {
			w.Abort()
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}

	dur := time.Since(start)
	log.Info().
		Str("path", path).
		Int64("rows", w.Rows()).
		Str("duration", dur.String()).
		Msg("results written")
	return dur, nil
}
