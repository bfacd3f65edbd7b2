package parquetio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/remitcheck/internal/model"
)

// Writer streams ResultRow records to a file. Rows go to a temporary file
// in the destination directory that is renamed into place on Close, so a
// failed run never leaves a truncated results file behind.
type Writer struct {
	path   string
	file   *os.File
	writer *parquet.GenericWriter[model.ResultRow]
	rows   int64
}

// Create opens a Writer for path.
func Create(path string) (*Writer, error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".remitcheck-*.parquet")
	if err != nil {
		return nil, fmt.Errorf("create results file: %w", err)
	}
	w := parquet.NewGenericWriter[model.ResultRow](f,
		parquet.Compression(&parquet.Zstd),
		parquet.CreatedBy("remitcheck", "", ""),
	)
	return &Writer{path: path, file: f, writer: w}, nil
}

// Write appends rows.
func (w *Writer) Write(rows []model.ResultRow) error {
	n, err := w.writer.Write(rows)
	w.rows += int64(n)
	if err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int64 {
	return w.rows
}

// Close flushes the footer and moves the file into place.
func (w *Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		w.Abort()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.file.Name())
		return fmt.Errorf("close results file: %w", err)
	}
	if err := os.Rename(w.file.Name(), w.path); err != nil {
		os.Remove(w.file.Name())
		return fmt.Errorf("rename results file: %w", err)
	}
	return nil
}

// Abort discards everything written.
func (w *Writer) Abort() {
	w.file.Close()
	os.Remove(w.file.Name())
}

// WriteFile writes rows to path in one call.
func WriteFile(path string, rows []model.ResultRow) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}
