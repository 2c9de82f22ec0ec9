package main

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"skupix/internal/tabular"
	"skupix/internal/testsupport"
)

func TestSplitCommandWritesParts(t *testing.T) {
	env := setupCLITestEnv(t)
	csvPath := filepath.Join(env.baseDir, "catalog.csv")
	rows := make([][]string, 0, 5)
	for i := 1; i <= 5; i++ {
		rows = append(rows, []string{strconv.Itoa(i), "item"})
	}
	testsupport.WriteCSV(t, csvPath, []string{"id", "name"}, rows...)

	out, _, err := runCLI(t, []string{"split", csvPath, "--chunk-size", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	requireContains(t, out, "Wrote 3 files of up to 2 rows")
	requireContains(t, out, "catalog_part3.csv")

	for i := 1; i <= 3; i++ {
		part := filepath.Join(env.baseDir, "catalog_split", "catalog_part"+strconv.Itoa(i)+".csv")
		if _, err := os.Stat(part); err != nil {
			t.Fatalf("expected %s: %v", part, err)
		}
	}
}

func TestSplitCommandOutDirAndHeaderOnly(t *testing.T) {
	env := setupCLITestEnv(t)
	csvPath := filepath.Join(env.baseDir, "empty.csv")
	testsupport.WriteCSV(t, csvPath, []string{"id"})
	outDir := filepath.Join(env.baseDir, "parts")

	out, _, err := runCLI(t, []string{"split", csvPath, "--out-dir", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	requireContains(t, out, "nothing written")

	if _, _, err := runCLI(t, []string{"split", csvPath, "--chunk-size", "0"}, env.configPath); err == nil {
		t.Fatal("expected zero chunk size to fail")
	}
}

func TestSplitCommandWorkbookKeepsFormat(t *testing.T) {
	env := setupCLITestEnv(t)
	bookPath := filepath.Join(env.baseDir, "catalog.xlsx")
	rows := make([][]string, 0, 3)
	for i := 1; i <= 3; i++ {
		rows = append(rows, []string{strconv.Itoa(i), "item"})
	}
	testsupport.WriteXLSX(t, bookPath, []string{"id", "name"}, rows...)

	out, _, err := runCLI(t, []string{"split", bookPath, "--chunk-size", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	requireContains(t, out, "Wrote 2 files")
	requireContains(t, out, "catalog_part2.xlsx")

	records, _, err := tabular.ReadFile(filepath.Join(env.baseDir, "catalog_split", "catalog_part2.xlsx"))
	if err != nil {
		t.Fatalf("read part: %v", err)
	}
	if len(records) != 1 || records[0]["id"] != "3" {
		t.Fatalf("part 2 records = %v", records)
	}
}
