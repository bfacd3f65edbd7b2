package db

import (
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/remitcheck/internal/model"
)

// ChannelSource implements pgx.CopyFromSource by reading BaseRates from a channel.
// This provides natural backpressure between the rate-table reader and COPY writer.
type ChannelSource struct {
	ch      <-chan model.BaseRate
	current model.BaseRate
}

// NewChannelSource creates a CopyFromSource backed by a channel.
func NewChannelSource(ch <-chan model.BaseRate) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Next advances to the next row. Returns false when the channel is closed.
func (s *ChannelSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	return true
}

// Values returns the current row's values in COPY column order.
func (s *ChannelSource) Values() ([]any, error) {
	return s.current.CopyValues(), nil
}

// Err always returns nil; the producer reports its own errors.
func (s *ChannelSource) Err() error {
	return nil
}

// Compile-time check that ChannelSource satisfies the interface.
var _ pgx.CopyFromSource = (*ChannelSource)(nil)
