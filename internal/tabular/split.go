package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"skupix/internal/fileutil"
)

// DefaultChunkSize is the number of data rows per part.
const DefaultChunkSize = 2500

// SplitDir returns the default output directory for path: "<base>_split"
// next to the input file.
func SplitDir(path string) string {
	return filepath.Join(filepath.Dir(path), baseName(path)+"_split")
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Split writes the data rows of the CSV or XLSX file at path into
// "<base>_part<N>.csv" or "<base>_part<N>.xlsx" files (same format as the
// input) of at most chunkSize rows each, repeating the header in every part.
// An empty outDir uses SplitDir(path). It returns the written paths in order;
// a header-only input writes nothing.
func Split(ctx context.Context, path, outDir string, chunkSize int) ([]string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if strings.TrimSpace(outDir) == "" {
		outDir = SplitDir(path)
	}

	format := FormatOf(path)
	rr, err := openRows(path)
	if err != nil {
		return nil, err
	}
	defer rr.Close()

	header, err := rr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	base := baseName(path)
	var written []string
	chunk := make([][]string, 0, min(chunkSize, 4096))

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if len(written) == 0 {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		part := filepath.Join(outDir, fmt.Sprintf("%s_part%d%s", base, len(written)+1, format.Ext()))
		if err := writePart(part, format, header, chunk); err != nil {
			return err
		}
		written = append(written, part)
		chunk = chunk[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		fields, err := rr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, fmt.Errorf("read row: %w", err)
		}
		chunk = append(chunk, fields)
		if len(chunk) == chunkSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

func writePart(path string, format Format, header []string, rows [][]string) error {
	var (
		data []byte
		err  error
	)
	if format == FormatXLSX {
		data, err = encodeXLSX(header, rows)
	} else {
		data, err = encodeCSV(header, rows)
	}
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}
