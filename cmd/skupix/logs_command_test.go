package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsCommandFiltersNewestFile(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.cfg.Paths.LogDir, "skupix-20260102.log")
	content := `{"level":"info","msg":"pipeline run started","run_id":"aaaa1111"}
{"level":"warn","msg":"row skipped","run_id":"aaaa1111","event_type":"row_failed","sku":"A2"}
{"level":"warn","msg":"row skipped","run_id":"bbbb2222","event_type":"row_failed","sku":"B7"}
`
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--file", logPath, "--run", "aaaa", "--event", "row_failed"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, `"sku":"A2"`)
	if strings.Contains(out, "B7") || strings.Contains(out, "pipeline run started") {
		t.Fatalf("filter leaked records:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--file", logPath, "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs -n 1: %v", err)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single record, got:\n%s", out)
	}
	requireContains(t, out, "B7")

	if _, _, err := runCLI(t, []string{"logs", "--level", "loud"}, env.configPath); err == nil {
		t.Fatal("expected unknown level to fail")
	}
}
