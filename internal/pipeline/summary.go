package pipeline

import (
	"sort"
	"time"
)

// RowResult is the outcome of one input row. Index is the 0-based position in
// the input; a nil Err means the row produced an artifact.
type RowResult struct {
	Index int
	ID    string
	URL   string
	Kind  FailureKind
	Err   error

	// Bytes is the encoded artifact size on success.
	Bytes int64
	// Superseded is set when a later row with the same id already owns the
	// artifact name, so this row's bytes were discarded.
	Superseded bool
	Duration   time.Duration
}

// OK reports whether the row succeeded.
func (r RowResult) OK() bool {
	return r.Err == nil
}

// Summary aggregates a run. Attempted counts every row that was processed,
// including rows rejected for missing fields, so Attempted == Succeeded +
// Failed. Attempted falls short of Total only when the run was interrupted.
type Summary struct {
	RunID       string
	Total       int
	Attempted   int
	Succeeded   int
	Failed      int
	ByKind      map[FailureKind]int
	Failures    []RowResult
	Interrupted bool
	Started     time.Time
	Finished    time.Time
}

func newSummary(runID string, total int) *Summary {
	return &Summary{
		RunID:   runID,
		Total:   total,
		ByKind:  make(map[FailureKind]int, len(FailureKinds)),
		Started: time.Now(),
	}
}

func (s *Summary) record(r RowResult) {
	s.Attempted++
	if r.OK() {
		s.Succeeded++
		return
	}
	s.Failed++
	s.ByKind[r.Kind]++
	s.Failures = append(s.Failures, r)
}

func (s *Summary) finish() {
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Index < s.Failures[j].Index })
	s.Interrupted = s.Attempted < s.Total
	s.Finished = time.Now()
}

// WithRequiredFields counts attempted rows that had both a URL and an id.
func (s *Summary) WithRequiredFields() int {
	return s.Attempted - s.ByKind[KindMissingField]
}

// Elapsed is the wall time of the run.
func (s *Summary) Elapsed() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}
