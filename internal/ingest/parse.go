package ingest

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/gyeh/remitcheck/internal/remit"
	"github.com/gyeh/remitcheck/internal/x12"
)

// ErrInvalidEncoding is returned for input that is not valid UTF-8.
var ErrInvalidEncoding = errors.New("input is not valid UTF-8")

// ParseOptions configure the parse phase.
type ParseOptions struct {
	Region                string
	ServiceDateQualifiers []string
}

// ParseResult is the outcome of tokenizing and assembling one file.
type ParseResult struct {
	remit.Result
	Delimiters x12.Delimiters
	Duration   time.Duration
}

// Parse decodes raw 835 text into claim lines. Delimiters come from the
// ISA envelope when one is present.
func Parse(data []byte, opts ParseOptions, log zerolog.Logger) (*ParseResult, error) {
	start := time.Now()
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}
	raw := string(data)

	delims := x12.DetectDelimiters(raw)
	log.Debug().Str("delimiters", describeDelimiters(delims)).Msg("delimiters detected")
	segments := delims.Tokenize(raw)
	if len(segments) == 0 {
		log.Warn().Msg("input contains no segments")
	}

	asm := remit.New(remit.Options{
		Region:                opts.Region,
		ServiceDateQualifiers: opts.ServiceDateQualifiers,
		ComponentSeparator:    delims.Component,
	}, log)
	res := asm.Assemble(segments)

	pr := &ParseResult{Result: res, Delimiters: delims, Duration: time.Since(start)}
	if res.Stats.LinesDropped > 0 {
		ev := log.Warn().Int64("lines_dropped", res.Stats.LinesDropped)
		for reason, n := range res.Stats.DropReasons {
			ev = ev.Int64(string(reason), n)
		}
		ev.Msg("claim lines dropped")
	}
	log.Info().
		Int64("segments", res.Stats.Segments).
		Int64("claims", res.Stats.Claims).
		Int64("lines", res.Stats.LinesEmitted).
		Str("duration", pr.Duration.String()).
		Msg("parse complete")
	return pr, nil
}

// ParseString is Parse for in-memory text.
func ParseString(raw string, opts ParseOptions, log zerolog.Logger) (*ParseResult, error) {
	return Parse([]byte(raw), opts, log)
}

func describeDelimiters(d x12.Delimiters) string {
	return fmt.Sprintf("segment=%q element=%q component=%q", d.Segment, d.Element, d.Component)
}
