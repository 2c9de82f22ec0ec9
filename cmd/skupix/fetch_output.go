package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"skupix/internal/logging"
	"skupix/internal/pipeline"
)

type fetchFailure struct {
	Row   int    `json:"row"`
	ID    string `json:"id"`
	URL   string `json:"url"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type fetchReport struct {
	RunID              string         `json:"run_id"`
	Source             string         `json:"source"`
	Archive            string         `json:"archive"`
	ArchiveBytes       int64          `json:"archive_bytes"`
	Entries            []string       `json:"entries"`
	Total              int            `json:"total"`
	Attempted          int            `json:"attempted"`
	WithRequiredFields int            `json:"attempted_with_required_fields"`
	Succeeded          int            `json:"succeeded"`
	Failed             int            `json:"failed"`
	ByKind             map[string]int `json:"failures_by_kind"`
	Interrupted        bool           `json:"interrupted"`
	ElapsedMillis      int64          `json:"elapsed_ms"`
	Failures           []fetchFailure `json:"failures"`
}

func newFetchReport(source, target string, archive *pipeline.Archive, summary *pipeline.Summary) fetchReport {
	report := fetchReport{
		RunID:              summary.RunID,
		Source:             source,
		Archive:            target,
		ArchiveBytes:       archive.Size(),
		Entries:            archive.Entries,
		Total:              summary.Total,
		Attempted:          summary.Attempted,
		WithRequiredFields: summary.WithRequiredFields(),
		Succeeded:          summary.Succeeded,
		Failed:             summary.Failed,
		ByKind:             make(map[string]int, len(pipeline.FailureKinds)),
		Interrupted:        summary.Interrupted,
		ElapsedMillis:      summary.Elapsed().Milliseconds(),
		Failures:           make([]fetchFailure, 0, len(summary.Failures)),
	}
	if report.Entries == nil {
		report.Entries = []string{}
	}
	for _, kind := range pipeline.FailureKinds {
		report.ByKind[string(kind)] = summary.ByKind[kind]
	}
	for _, f := range summary.Failures {
		report.Failures = append(report.Failures, fetchFailure{
			Row:   f.Index + 1,
			ID:    f.ID,
			URL:   f.URL,
			Kind:  string(f.Kind),
			Error: errorText(f.Err),
		})
	}
	return report
}

func printFetchReport(cmd *cobra.Command, report fetchReport) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Archive: %s (%d images, %s)\n", report.Archive, len(report.Entries), logging.FormatBytes(report.ArchiveBytes))
	if report.Interrupted {
		fmt.Fprintf(out, "Stopped early: %d of %d rows processed\n", report.Attempted, report.Total)
	}
	fmt.Fprintln(out)

	rows := [][]string{
		{"Rows", formatCount(report.Total)},
		{"Attempted", formatCount(report.Attempted)},
		{"Succeeded", formatCount(report.Succeeded)},
		{"Failed", formatCount(report.Failed)},
	}
	for _, kind := range pipeline.FailureKinds {
		if n := report.ByKind[string(kind)]; n > 0 {
			rows = append(rows, []string{"  " + string(kind), formatCount(n)})
		}
	}
	rows = append(rows, []string{"Elapsed", formatDuration(msDuration(report.ElapsedMillis))})
	fmt.Fprint(out, renderTable(tableSpec{
		Title:   "Run " + shortID(report.RunID),
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignRight},
	}))

	if len(report.Failures) == 0 {
		return
	}
	failureRows := make([][]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failureRows = append(failureRows, []string{strconv.Itoa(f.Row), f.ID, f.Kind, f.Error})
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, renderTable(tableSpec{
		Title:   "Failed rows",
		Headers: []string{"Row", "SKU", "Kind", "Error"},
		Rows:    failureRows,
		Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	}))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
