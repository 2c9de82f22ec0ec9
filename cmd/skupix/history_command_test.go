package main

import (
	"encoding/json"
	"testing"
	"time"

	"skupix/internal/history"
	"skupix/internal/testsupport"
)

func TestHistoryCommandListsAndShowsRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	base := time.Now().Add(-time.Hour)
	testsupport.RecordRun(t, store, "11111111-aaaa-4000-8000-000000000001", base, 4, 0)
	testsupport.RecordRun(t, store, "22222222-bbbb-4000-8000-000000000002", base.Add(time.Minute), 1, 1, history.Failure{
		RunID:    "22222222-bbbb-4000-8000-000000000002",
		RowIndex: 1,
		ItemID:   "SKU-9",
		URL:      "https://img.example.com/9.jpg",
		Kind:     "fetch_error",
		Message:  "fetch failed: status 404",
	})

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "11111111")
	requireContains(t, out, "22222222")

	out, _, err = runCLI(t, []string{"history", "2222"}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "22222222-bbbb-4000-8000-000000000002")
	requireContains(t, out, "SKU-9")
	requireContains(t, out, "status 404")

	out, _, err = runCLI(t, []string{"history", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history json: %v", err)
	}
	var views []runView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(views) != 1 || views[0].ID != "22222222-bbbb-4000-8000-000000000002" {
		t.Fatalf("expected newest run only, got %+v", views)
	}

	if _, _, err := runCLI(t, []string{"history", "ffff"}, env.configPath); err == nil {
		t.Fatal("expected unknown run id to fail")
	}
}

func TestHistoryCommandPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		testsupport.RecordRun(t, store, id, base.Add(time.Duration(i)*time.Minute), 1, 0)
	}

	out, _, err := runCLI(t, []string{"history", "--prune", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 2 runs")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "run-c")
}

func TestHistoryCommandDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistoryDisabled())
	if _, _, err := runCLI(t, []string{"history"}, env.configPath); err == nil {
		t.Fatal("expected disabled history to fail")
	}
}
