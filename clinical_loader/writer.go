package main

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// Row groups are flushed at 64MB; note bodies dominate the size, so a
// notes file ends up with a handful of groups that the loader scans in order.
const (
	stagingPageSize  = 8 * 1024
	stagingGroupSize = 64 * 1024 * 1024
)

// stagingWriter appends raw rows of one entity to a Parquet staging file.
// Columns stay text; the loader normalizes staged rows the same way as CSV.
type stagingWriter[T any] struct {
	path string
	f    *os.File
	pw   *parquet.GenericWriter[T]
	rows int
}

func newStagingWriter[T any](path string) (*stagingWriter[T], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	pw := parquet.NewGenericWriter[T](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.PageBufferSize(stagingPageSize),
		parquet.WriteBufferSize(stagingGroupSize),
		parquet.CreatedBy("clinicaletl", "1.0", ""),
	)
	return &stagingWriter[T]{path: path, f: f, pw: pw}, nil
}

func (w *stagingWriter[T]) Append(batch []T) error {
	n, err := w.pw.Write(batch)
	w.rows += n
	if err != nil {
		return fmt.Errorf("append %d rows after row %d: %w", len(batch), w.rows-n, err)
	}
	return nil
}

// Rows is the number of rows appended so far.
func (w *stagingWriter[T]) Rows() int { return w.rows }

// Finish writes the footer. The file is only readable after Finish.
func (w *stagingWriter[T]) Finish() error {
	if err := w.pw.Close(); err != nil {
		w.Abort()
		return fmt.Errorf("finish staging file: %w", err)
	}
	return w.f.Close()
}

// Abort closes and removes a partially written file so a later load never
// picks up a staging file without a footer.
func (w *stagingWriter[T]) Abort() {
	w.f.Close()
	os.Remove(w.path)
}
