package tabular

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, dir string, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("\ufeffsku,Image\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "S%d,\"https://x/%d.jpg\"\n", i, i)
	}
	path := filepath.Join(dir, "products.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeXLSX(t *testing.T, path string, rows [][]any) {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(0)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestSplitChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, 7)

	parts, err := Split(context.Background(), path, "", 3)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	wantDir := filepath.Join(dir, "products_split")
	want := []string{
		filepath.Join(wantDir, "products_part1.csv"),
		filepath.Join(wantDir, "products_part2.csv"),
		filepath.Join(wantDir, "products_part3.csv"),
	}
	if len(parts) != len(want) {
		t.Fatalf("parts = %v", parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("parts[%d] = %s, want %s", i, parts[i], want[i])
		}
	}

	sizes := []int{3, 3, 1}
	next := 1
	for i, part := range parts {
		records, header, err := ReadCSVFile(part)
		if err != nil {
			t.Fatalf("read %s: %v", part, err)
		}
		if header[0] != "sku" || header[1] != "Image" {
			t.Fatalf("%s header = %q", part, header)
		}
		if len(records) != sizes[i] {
			t.Fatalf("%s has %d rows, want %d", part, len(records), sizes[i])
		}
		for _, rec := range records {
			if rec["sku"] != fmt.Sprintf("S%d", next) {
				t.Fatalf("row order broken at %s: %v", part, rec)
			}
			next++
		}
	}
}

func TestSplitExplicitOutDirAndDefaultChunk(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, 5)
	out := filepath.Join(dir, "custom")

	parts, err := Split(context.Background(), path, out, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 1 || filepath.Dir(parts[0]) != out {
		t.Fatalf("parts = %v", parts)
	}
}

func TestSplitHeaderOnlyWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, 0)

	parts, err := Split(context.Background(), path, "", 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 0 {
		t.Fatalf("parts = %v", parts)
	}
	if _, err := os.Stat(SplitDir(path)); !os.IsNotExist(err) {
		t.Fatal("output dir should not be created for header-only input")
	}
}

func TestSplitEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Split(context.Background(), path, "", 10); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func TestSplitCancelled(t *testing.T) {
	path := writeCSV(t, t.TempDir(), 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Split(ctx, path, "", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSplitXLSXRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.xlsx")
	writeXLSX(t, path, [][]any{
		{"sku", "Image"},
		{"00123", "https://x/1.jpg"},
		{"S2", "https://x/2.jpg"},
		{"S3", "https://x/3.jpg"},
	})

	parts, err := Split(context.Background(), path, "", 2)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	wantDir := filepath.Join(dir, "catalog_split")
	want := []string{
		filepath.Join(wantDir, "catalog_part1.xlsx"),
		filepath.Join(wantDir, "catalog_part2.xlsx"),
	}
	if len(parts) != 2 || parts[0] != want[0] || parts[1] != want[1] {
		t.Fatalf("parts = %v, want %v", parts, want)
	}

	var skus []string
	for i, part := range parts {
		records, header, err := ReadFile(part)
		if err != nil {
			t.Fatalf("read %s: %v", part, err)
		}
		if len(header) != 2 || header[0] != "sku" || header[1] != "Image" {
			t.Fatalf("%s header = %q", part, header)
		}
		if len(records) != []int{2, 1}[i] {
			t.Fatalf("%s has %d rows", part, len(records))
		}
		for _, rec := range records {
			skus = append(skus, rec["sku"])
		}
	}
	if strings.Join(skus, ",") != "00123,S2,S3" {
		t.Fatalf("skus = %v", skus)
	}
}

func TestSplitXLSXHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	writeXLSX(t, path, [][]any{{"sku", "Image"}})

	parts, err := Split(context.Background(), path, "", 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 0 {
		t.Fatalf("parts = %v", parts)
	}
}
