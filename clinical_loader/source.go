package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/parquet-go/parquet-go"
)

// rowSource yields an input file in bounded chunks. Next returns io.EOF once
// no rows remain.
type rowSource[T any] interface {
	Next() ([]T, error)
	Malformed() int
	Close() error
}

// openSource picks the reader by file extension: .parquet staging files or
// CSV for anything else.
func openSource[T any](path string, chunk int) (rowSource[T], error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return newParquetSource[T](path, chunk)
	}
	return newCSVSource[T](path, chunk)
}

// csvSource decodes CSV records into T with csvutil.
type csvSource[T any] struct {
	file      *os.File
	dec       *csvutil.Decoder
	chunk     int
	rowNum    int64
	malformed int
}

func newCSVSource[T any](path string, chunk int) (*csvSource[T], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	bufReader := bufio.NewReaderSize(file, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i, h := range header {
		header[i] = strings.ToUpper(strings.TrimSpace(h))
	}

	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("decoder for %s: %w", path, err)
	}

	return &csvSource[T]{
		file:   file,
		dec:    dec,
		chunk:  chunk,
		rowNum: 1,
	}, nil
}

func (s *csvSource[T]) Next() ([]T, error) {
	rows := make([]T, 0, s.chunk)
	for len(rows) < s.chunk {
		var row T
		err := s.dec.Decode(&row)
		if err == io.EOF {
			break
		}
		s.rowNum++
		if err != nil {
			// A record with the wrong number of fields is a bad row, not a bad file.
			if errors.Is(err, csvutil.ErrFieldCount) {
				s.malformed++
				continue
			}
			return nil, fmt.Errorf("decode row %d: %w", s.rowNum, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}
	return rows, nil
}

// RowNum returns the last physical row read, header included.
func (s *csvSource[T]) RowNum() int64 {
	return s.rowNum
}

func (s *csvSource[T]) Malformed() int {
	return s.malformed
}

func (s *csvSource[T]) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// parquetSource reads a staging file written by `convert`.
type parquetSource[T any] struct {
	file   *os.File
	reader *parquet.GenericReader[T]
	buf    []T
}

func newParquetSource[T any](path string, chunk int) (*parquetSource[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetSource[T]{
		file:   f,
		reader: parquet.NewGenericReader[T](f),
		buf:    make([]T, chunk),
	}, nil
}

func (s *parquetSource[T]) Next() ([]T, error) {
	n, err := s.reader.Read(s.buf)
	if n > 0 {
		rows := make([]T, n)
		copy(rows, s.buf[:n])
		return rows, nil
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return nil, io.EOF
}

func (s *parquetSource[T]) Malformed() int {
	return 0
}

func (s *parquetSource[T]) Close() error {
	s.reader.Close()
	return s.file.Close()
}
