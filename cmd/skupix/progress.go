package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"skupix/internal/logging"
)

// progressReporter renders a live bar on interactive terminals and falls
// back to percent-bucketed log lines everywhere else.
type progressReporter struct {
	label   string
	logger  *slog.Logger
	sampler *logging.ProgressSampler

	writer  progress.Writer
	tracker *progress.Tracker
}

func newProgressReporter(out io.Writer, label string, total int, logger *slog.Logger) *progressReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &progressReporter{label: label, logger: logger}
	if !isTerminal(out) {
		r.sampler = logging.NewProgressSampler(10)
		return r
	}

	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetMessageLength(18)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Value = true

	r.tracker = &progress.Tracker{Message: label, Total: int64(total), Units: progress.UnitsDefault}
	pw.AppendTracker(r.tracker)
	r.writer = pw
	go pw.Render()
	return r
}

// step records one finished unit. Calls must be serialized by the caller.
func (r *progressReporter) step(done, total int) {
	if r.tracker != nil {
		r.tracker.Increment(1)
		return
	}
	if !r.sampler.ShouldLog(done, total) {
		return
	}
	percent := 100
	if total > 0 {
		percent = done * 100 / total
	}
	r.logger.Info(r.label+" progress",
		logging.Int("done", done),
		logging.Int("total", total),
		logging.Int("percent", percent),
		logging.String(logging.FieldEventType, "progress"),
	)
}

// stop flushes the bar. An interrupted run leaves the bar marked as errored
// at the point it stopped.
func (r *progressReporter) stop(interrupted bool) {
	if r.writer == nil {
		return
	}
	if interrupted {
		r.tracker.MarkAsErrored()
	} else {
		r.tracker.MarkAsDone()
	}
	r.writer.Stop()
	for r.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
