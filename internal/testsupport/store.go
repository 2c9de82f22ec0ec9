package testsupport

import (
	"context"
	"testing"
	"time"

	"skupix/internal/config"
	"skupix/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordRun stores a finished fetch run with the given counts.
func RecordRun(t testing.TB, store *history.Store, id string, started time.Time, succeeded, failed int, failures ...history.Failure) history.Run {
	t.Helper()

	run := history.Run{
		ID:         id,
		Command:    "fetch",
		Source:     "/tmp/products.csv",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Total:      succeeded + failed,
		Attempted:  succeeded + failed,
		Succeeded:  succeeded,
		Failed:     failed,
		Entries:    succeeded,
	}
	if err := store.Record(context.Background(), run, failures); err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return run
}
