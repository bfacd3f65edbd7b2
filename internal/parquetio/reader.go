// Package parquetio reads and writes the per-line results file.
package parquetio

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/remitcheck/internal/model"
)

// Reader wraps a parquet GenericReader for streaming ResultRow records.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[model.ResultRow]
}

// Open opens a results file and returns a streaming Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	if err := ValidateSchema(pf.Schema()); err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{file: f, reader: parquet.NewGenericReader[model.ResultRow](pf)}, nil
}

// NumRows returns the total number of rows in the file.
func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records. Returns io.EOF when done.
func (r *Reader) Read(rows []model.ResultRow) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// ReadAll drains the reader.
func (r *Reader) ReadAll() ([]model.ResultRow, error) {
	out := make([]model.ResultRow, 0, r.NumRows())
	buf := make([]model.ResultRow, 512)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// Close releases all resources.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
