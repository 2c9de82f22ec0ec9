package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"skupix/internal/config"
	"skupix/internal/history"
	"skupix/internal/logging"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var keep int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs, or the failed rows of one run",
		Long: `Without arguments, list recent fetch and batch runs, newest first.
With a run id (or a unique prefix of one), show that run and every row that
produced no output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("run history is disabled (history.enabled = false)")
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if cmd.Flags().Changed("prune") {
				removed, err := store.Prune(cmd.Context(), keep)
				if err != nil {
					return fmt.Errorf("prune history: %w", err)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed, "kept": keep})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs, kept the newest %d\n", removed, keep)
				return nil
			}

			if len(args) == 1 {
				return showRun(cmd, ctx, store, args[0])
			}

			if !cmd.Flags().Changed("limit") {
				limit = cfg.History.MaxListed
			}
			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if ctx.JSONMode() {
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run))
				}
				return writeJSON(cmd, views)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRunsTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of runs to list (default history.max_listed)")
	cmd.Flags().IntVar(&keep, "prune", 0, "Delete all but the newest N runs")
	return cmd
}

func showRun(cmd *cobra.Command, ctx *commandContext, store *history.Store, id string) error {
	run, err := store.Get(cmd.Context(), id)
	switch {
	case errors.Is(err, history.ErrNotFound):
		return fmt.Errorf("no run matches %q", id)
	case errors.Is(err, history.ErrAmbiguous):
		return fmt.Errorf("%q matches more than one run; use more of the id", id)
	case err != nil:
		return fmt.Errorf("load run: %w", err)
	}
	failures, err := store.Failures(cmd.Context(), run.ID)
	if err != nil {
		return fmt.Errorf("load failures: %w", err)
	}

	if ctx.JSONMode() {
		view := newRunView(run)
		view.Failures = make([]failureView, 0, len(failures))
		for _, f := range failures {
			view.Failures = append(view.Failures, failureView{
				Row:     f.RowIndex + 1,
				ID:      f.ItemID,
				URL:     f.URL,
				Kind:    f.Kind,
				Message: f.Message,
			})
		}
		return writeJSON(cmd, view)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:         %s\n", run.ID)
	fmt.Fprintf(out, "Command:     %s\n", run.Command)
	fmt.Fprintf(out, "Source:      %s\n", run.Source)
	fmt.Fprintf(out, "Output:      %s\n", run.ArchivePath)
	fmt.Fprintf(out, "Started:     %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), formatAge(run.StartedAt))
	fmt.Fprintf(out, "Duration:    %s\n", formatDuration(run.Duration()))
	fmt.Fprintf(out, "Rows:        %d attempted of %d, %d succeeded, %d failed\n", run.Attempted, run.Total, run.Succeeded, run.Failed)
	fmt.Fprintf(out, "Interrupted: %s\n", yesNo(run.Interrupted))
	if run.ArchiveBytes > 0 {
		fmt.Fprintf(out, "Archive:     %d entries, %s\n", run.Entries, logging.FormatBytes(run.ArchiveBytes))
	}

	if len(failures) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{strconv.Itoa(f.RowIndex + 1), f.ItemID, f.Kind, f.Message})
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, renderTable(tableSpec{
		Title:   "Failed rows",
		Headers: []string{"Row", "Item", "Kind", "Error"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	}))
	return nil
}

func renderRunsTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := "done"
		if run.Interrupted {
			status = "stopped"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.Command,
			formatAge(run.StartedAt),
			formatCount(run.Total),
			formatCount(run.Succeeded),
			formatCount(run.Failed),
			status,
			formatDuration(run.Duration()),
		})
	}
	return renderTable(tableSpec{
		Headers: []string{"Run", "Command", "Started", "Rows", "OK", "Failed", "Status", "Duration"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight},
	})
}

type failureView struct {
	Row     int    `json:"row"`
	ID      string `json:"id"`
	URL     string `json:"url,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type runView struct {
	ID           string        `json:"id"`
	Command      string        `json:"command"`
	Source       string        `json:"source"`
	Output       string        `json:"output"`
	StartedAt    string        `json:"started_at"`
	FinishedAt   string        `json:"finished_at,omitempty"`
	Total        int           `json:"total"`
	Attempted    int           `json:"attempted"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Interrupted  bool          `json:"interrupted"`
	ArchiveBytes int64         `json:"archive_bytes"`
	Entries      int           `json:"entries"`
	Failures     []failureView `json:"failures,omitempty"`
}

func newRunView(run history.Run) runView {
	view := runView{
		ID:           run.ID,
		Command:      run.Command,
		Source:       run.Source,
		Output:       run.ArchivePath,
		StartedAt:    run.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Total:        run.Total,
		Attempted:    run.Attempted,
		Succeeded:    run.Succeeded,
		Failed:       run.Failed,
		Interrupted:  run.Interrupted,
		ArchiveBytes: run.ArchiveBytes,
		Entries:      run.Entries,
	}
	if !run.FinishedAt.IsZero() {
		view.FinishedAt = run.FinishedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return view
}

// recordHistory stores a finished run. History is best effort: failures are
// logged and never fail the command that produced the run.
func recordHistory(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, run history.Run, failures []history.Failure) {
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.log_dir permissions or set history.enabled = false"),
			logging.String(logging.FieldImpact, "this run is not listed by `skupix history`"),
		)
		return
	}
	defer store.Close()

	if err := store.Record(cmd.Context(), run, failures); err != nil {
		logging.WarnWithContext(logger, "run history write failed", "history_write_failed",
			logging.String(logging.FieldRunID, run.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not listed by `skupix history`"),
		)
		return
	}
	logger.Debug("run recorded",
		logging.String(logging.FieldRunID, run.ID),
		logging.String("command", run.Command),
		logging.String(logging.FieldEventType, "history_recorded"),
	)
}
