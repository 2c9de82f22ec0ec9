package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a spreadsheet encoding, chosen by file extension.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

// FormatOf returns FormatXLSX for .xlsx and .xlsm paths and FormatCSV for
// everything else.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Ext is the extension written for parts in this format.
func (f Format) Ext() string {
	if f == FormatXLSX {
		return ".xlsx"
	}
	return ".csv"
}

// rowReader yields raw rows, returning io.EOF after the last one.
type rowReader interface {
	Read() ([]string, error)
	Close() error
}

type csvFile struct {
	*csv.Reader
	file *os.File
}

func (c csvFile) Close() error { return c.file.Close() }

func openRows(path string) (rowReader, error) {
	if FormatOf(path) == FormatXLSX {
		return openXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return csvFile{Reader: newReader(f), file: f}, nil
}

// xlsxReader streams the first worksheet of a workbook. Rows with no cells
// are skipped.
type xlsxReader struct {
	book *excelize.File
	rows *excelize.Rows
}

func openXLSX(path string) (*xlsxReader, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		_ = book.Close()
		return nil, ErrNoHeader
	}
	rows, err := book.Rows(sheets[0])
	if err != nil {
		_ = book.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return &xlsxReader{book: book, rows: rows}, nil
}

func (x *xlsxReader) Read() ([]string, error) {
	for x.rows.Next() {
		cells, err := x.rows.Columns()
		if err != nil {
			return nil, err
		}
		if len(cells) > 0 {
			return cells, nil
		}
	}
	if err := x.rows.Error(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (x *xlsxReader) Close() error {
	return errors.Join(x.rows.Close(), x.book.Close())
}

// encodeXLSX renders header and rows as a single-sheet workbook. Cells are
// written as text so identifiers such as "00123" keep their leading zeros.
func encodeXLSX(header []string, rows [][]string) ([]byte, error) {
	book := excelize.NewFile()
	defer book.Close()

	sw, err := book.NewStreamWriter(book.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("open sheet writer: %w", err)
	}
	writeRow := func(n int, fields []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		values := make([]any, len(fields))
		for i, v := range fields {
			values[i] = v
		}
		return sw.SetRow(cell, values)
	}
	if err := writeRow(1, header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, fields := range rows {
		if err := writeRow(i+2, fields); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	var buf bytes.Buffer
	if _, err := book.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
