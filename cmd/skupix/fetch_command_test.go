package main

import (
	"archive/zip"
	"context"
	"encoding/json"
	"image"
	"image/color"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"skupix/internal/pipeline"
	"skupix/internal/testsupport"
)

func writeProductCSV(t *testing.T, env *cliTestEnv, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(env.baseDir, "products.csv")
	testsupport.WriteCSV(t, path, []string{"Image", "sku", "name"}, rows...)
	return path
}

func TestFetchCommandWritesArchiveAndHistory(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithGeometry(80, 60))
	srv := testsupport.NewImageServer(t, map[string][]byte{
		"/a.jpg": testsupport.JPEG(t, 40, 20, color.NRGBA{R: 200, A: 255}),
	})
	csvPath := writeProductCSV(t, env,
		[]string{srv.URL + "/a.jpg", "A1", "first"},
		[]string{srv.URL + "/missing.jpg", "A2", "second"},
		[]string{srv.URL + "/a.jpg", "", "third"},
	)

	out, _, err := runCLI(t, []string{"fetch", csvPath, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	var report fetchReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Total != 3 || report.Attempted != 3 || report.Succeeded != 1 || report.Failed != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.ByKind[string(pipeline.KindMissingField)] != 1 || report.ByKind[string(pipeline.KindFetch)] != 1 {
		t.Fatalf("unexpected failure kinds: %v", report.ByKind)
	}
	if report.WithRequiredFields != 2 {
		t.Fatalf("expected 2 rows with required fields, got %d", report.WithRequiredFields)
	}
	if !slices.Equal(report.Entries, []string{"A1.jpg"}) {
		t.Fatalf("unexpected entries: %v", report.Entries)
	}
	wantArchive := filepath.Join(env.cfg.Paths.OutputDir, defaultArchiveName)
	if report.Archive != wantArchive {
		t.Fatalf("archive path = %q, want %q", report.Archive, wantArchive)
	}
	if len(report.Failures) != 2 || report.Failures[0].Row != 2 || report.Failures[1].Row != 3 {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}

	zr, err := zip.OpenReader(wantArchive)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != "A1.jpg" {
		t.Fatalf("unexpected archive contents: %d files", len(zr.File))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	cfg, format, err := image.DecodeConfig(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if format != "jpeg" || cfg.Width != 80 || cfg.Height != 60 {
		t.Fatalf("entry is %s %dx%d, want jpeg 80x60", format, cfg.Width, cfg.Height)
	}

	store := testsupport.MustOpenStore(t, env.cfg)
	run, err := store.Get(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if run.Command != "fetch" || run.Succeeded != 1 || run.Failed != 2 || run.Entries != 1 {
		t.Fatalf("unexpected history run: %+v", run)
	}
	failures, err := store.Failures(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("history Failures: %v", err)
	}
	if len(failures) != 2 || failures[0].Kind != "fetch_error" || failures[1].Kind != "missing_field" {
		t.Fatalf("unexpected history failures: %+v", failures)
	}
}

func TestFetchCommandTextOutput(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithGeometry(32, 32), testsupport.WithHistoryDisabled())
	srv := testsupport.NewImageServer(t, map[string][]byte{
		"/ok.jpg": testsupport.JPEG(t, 16, 16, color.White),
	})
	csvPath := writeProductCSV(t, env,
		[]string{srv.URL + "/ok.jpg", "SKU-1", ""},
		[]string{srv.URL + "/gone.jpg", "SKU-2", ""},
	)
	target := filepath.Join(env.baseDir, "custom.zip")

	out, _, err := runCLI(t, []string{"fetch", csvPath, "--out", target, "--workers", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	requireContains(t, out, "Archive: "+target)
	requireContains(t, out, "1 images")
	requireContains(t, out, "Failed rows")
	requireContains(t, out, "SKU-2")
	requireContains(t, out, "fetch_error")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected archive at %s: %v", target, err)
	}
	if _, err := os.Stat(env.cfg.HistoryPath()); !os.IsNotExist(err) {
		t.Fatalf("history disabled but database exists: %v", err)
	}
}

func TestFetchCommandOutDirectory(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithGeometry(16, 16))
	srv := testsupport.NewImageServer(t, map[string][]byte{
		"/ok.jpg": testsupport.JPEG(t, 8, 8, color.Black),
	})
	csvPath := writeProductCSV(t, env, []string{srv.URL + "/ok.jpg", "X", ""})
	dir := filepath.Join(env.baseDir, "exports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, _, err := runCLI(t, []string{"fetch", csvPath, "--out", dir, "--json"}, env.configPath); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, defaultArchiveName)); err != nil {
		t.Fatalf("expected archive inside --out directory: %v", err)
	}
}

func TestFetchCommandEmptySpreadsheet(t *testing.T) {
	env := setupCLITestEnv(t)

	headerOnly := writeProductCSV(t, env)
	empty := filepath.Join(env.baseDir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty csv: %v", err)
	}

	for _, path := range []string{headerOnly, empty} {
		_, _, err := runCLI(t, []string{"fetch", path}, env.configPath)
		if err == nil || err.Error() != "CSV file is empty or incorrectly formatted" {
			t.Fatalf("fetch %s: expected empty spreadsheet error, got %v", filepath.Base(path), err)
		}
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, defaultArchiveName)); !os.IsNotExist(err) {
		t.Fatalf("no archive expected for empty input: %v", err)
	}
}

func TestFetchCommandRejectsBadFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	csvPath := writeProductCSV(t, env, []string{"http://127.0.0.1:1/a.jpg", "A", ""})

	cases := [][]string{
		{"fetch", csvPath, "--background", "#zzzzzz"},
		{"fetch", csvPath, "--workers", "0"},
		{"fetch", csvPath, "--width", "0"},
		{"fetch", csvPath, "--quality", "101"},
		{"fetch", csvPath, "--timeout", "0s"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args[2:])
		}
	}
}

func TestFetchOptionsLayersFlagsOverConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cmd := newFetchCommand(newCommandContext(new(string), new(bool)))
	if err := cmd.ParseFlags([]string{"--url-column", "Photo", "--width", "640", "--background", "#000", "--timeout", "3s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	flags := fetchFlags{urlColumn: "Photo", width: 640, background: "#000", timeout: 3 * time.Second}

	opts, err := fetchOptions(cmd, cfg, flags)
	if err != nil {
		t.Fatalf("fetchOptions: %v", err)
	}
	if opts.URLColumn != "Photo" || opts.IDColumn != cfg.Fetch.IDColumn {
		t.Fatalf("unexpected columns %q/%q", opts.URLColumn, opts.IDColumn)
	}
	if opts.Width != 640 || opts.Height != cfg.Image.Height {
		t.Fatalf("unexpected geometry %dx%d", opts.Width, opts.Height)
	}
	if opts.Background != (color.NRGBA{A: 255}) {
		t.Fatalf("unexpected background %v", opts.Background)
	}
	if opts.Timeout != 3*time.Second || opts.DirectTimeout != 3*time.Second {
		t.Fatalf("unexpected timeouts %s/%s", opts.Timeout, opts.DirectTimeout)
	}
	if opts.WorkRoot != cfg.Paths.WorkDir {
		t.Fatalf("work root = %q, want %q", opts.WorkRoot, cfg.Paths.WorkDir)
	}
}

func TestArchivePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	got, err := archivePath(cfg, "")
	if err != nil {
		t.Fatalf("archivePath: %v", err)
	}
	if want := filepath.Join(cfg.Paths.OutputDir, defaultArchiveName); got != want {
		t.Fatalf("archivePath default = %q, want %q", got, want)
	}

	explicit := filepath.Join(testsupport.BaseDir(cfg), "named.zip")
	got, err = archivePath(cfg, explicit)
	if err != nil {
		t.Fatalf("archivePath: %v", err)
	}
	if got != explicit {
		t.Fatalf("archivePath explicit = %q, want %q", got, explicit)
	}
}
