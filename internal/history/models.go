package history

import "time"

// Run is one recorded invocation.
type Run struct {
	ID           string
	Command      string
	Source       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	Attempted    int
	Succeeded    int
	Failed       int
	Interrupted  bool
	ArchivePath  string
	ArchiveBytes int64
	Entries      int
}

// Duration returns the run's wall time, or zero if it never finished.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failure is one row that produced no artifact.
type Failure struct {
	RunID    string
	RowIndex int
	ItemID   string
	URL      string
	Kind     string
	Message  string
}
