// Package tabular reads spreadsheet exports into keyed rows and splits large
// exports into fixed-size parts.
//
// CSV and XLSX workbooks are accepted, chosen by file extension. For CSV a
// UTF-8 or UTF-16 byte-order mark is honoured and stripped, so files saved
// from Excel load without a mangled first header. For XLSX the first sheet is
// read.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned when the input has no header row at all.
var ErrNoHeader = errors.New("csv has no header row")

// Record maps header names to cell values for one data row.
type Record = map[string]string

// newReader wraps r so BOM-prefixed UTF-8 and UTF-16 input decodes to plain UTF-8.
func newReader(r io.Reader) *csv.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// ReadCSV parses r into records keyed by the header row. Short rows leave the
// missing cells empty; extra cells beyond the header are dropped. Repeated
// header names are disambiguated as "name.1", "name.2".
func ReadCSV(r io.Reader) ([]Record, []string, error) {
	return readRecords(newReader(r))
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) ([]Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadFile reads a CSV or XLSX file, picked by FormatOf, into records with
// the same rules as ReadCSV.
func ReadFile(path string) ([]Record, []string, error) {
	rr, err := openRows(path)
	if err != nil {
		return nil, nil, err
	}
	defer rr.Close()
	return readRecords(rr)
}

func readRecords(rr interface{ Read() ([]string, error) }) ([]Record, []string, error) {
	header, err := rr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)

	var records []Record
	for {
		fields, err := rr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = fields[i]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records, header, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

// HasColumn reports whether header contains name.
func HasColumn(header []string, name string) bool {
	for _, h := range header {
		if h == name {
			return true
		}
	}
	return false
}

// Column returns the trimmed, non-empty values of one column in row order.
func Column(records []Record, name string) []string {
	values := make([]string, 0, len(records))
	for _, rec := range records {
		if v := strings.TrimSpace(rec[name]); v != "" {
			values = append(values, v)
		}
	}
	return values
}
