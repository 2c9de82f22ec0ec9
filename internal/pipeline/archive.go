package pipeline

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Archive is the zip built from a run's working area.
type Archive struct {
	Data    []byte
	Entries []string
}

// Size returns the archive length in bytes.
func (a *Archive) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// WriteTo writes the archive bytes to w.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	if a == nil {
		return 0, nil
	}
	n, err := w.Write(a.Data)
	return int64(n), err
}

// BuildArchive zips the regular files directly inside dir. Entry names are the
// bare file names in sorted order; subdirectories are ignored. An empty dir
// yields a valid empty archive.
func BuildArchive(dir string) (*Archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read working area: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		if err := addZipEntry(zw, filepath.Join(dir, name), name); err != nil {
			_ = zw.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return &Archive{Data: buf.Bytes(), Entries: names}, nil
}

func addZipEntry(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate
	header.Modified = info.ModTime().UTC().Truncate(time.Second)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
