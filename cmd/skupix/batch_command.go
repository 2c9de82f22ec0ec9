package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"skupix/internal/batchcopy"
	"skupix/internal/config"
	"skupix/internal/history"
	"skupix/internal/tabular"
)

// missingListLimit caps how many absent names the text output prints.
const missingListLimit = 20

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceDir string
		targetDir string
		column    string
		perFolder int
		start     int
		prefix    string
		verify    bool
	)

	cmd := &cobra.Command{
		Use:   "batch <csv|xlsx>",
		Short: "Copy the images named in a spreadsheet into numbered folders",
		Long: `Read image file names from one spreadsheet column and copy the ones that
exist in --source into --target/images1, --target/images2, ... with a fixed
number of files per folder. Modification times are preserved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts := batchcopy.Options{
				PerFolder:    cfg.Batch.PerFolder,
				StartIndex:   cfg.Batch.StartIndex,
				FolderPrefix: cfg.Batch.FolderPrefix,
				Verify:       cfg.Batch.Verify,
				Logger:       logger,
			}
			changed := cmd.Flags().Changed
			if changed("per-folder") {
				if perFolder < 1 {
					return fmt.Errorf("--per-folder must be at least 1")
				}
				opts.PerFolder = perFolder
			}
			if changed("start") {
				if start < 1 {
					return fmt.Errorf("--start must be at least 1")
				}
				opts.StartIndex = start
			}
			if changed("prefix") {
				opts.FolderPrefix = prefix
			}
			if changed("verify") {
				opts.Verify = verify
			}
			if opts.SourceDir, err = config.ExpandPath(sourceDir); err != nil {
				return fmt.Errorf("resolve --source: %w", err)
			}
			if opts.TargetDir, err = config.ExpandPath(targetDir); err != nil {
				return fmt.Errorf("resolve --target: %w", err)
			}

			nameColumn := cfg.Batch.Column
			if changed("column") {
				nameColumn = column
			}
			source := args[0]
			records, header, err := tabular.ReadFile(source)
			if errors.Is(err, tabular.ErrNoHeader) || (err == nil && len(records) == 0) {
				return errEmptySpreadsheet
			}
			if err != nil {
				return fmt.Errorf("read spreadsheet: %w", err)
			}
			if !tabular.HasColumn(header, nameColumn) {
				return fmt.Errorf("column %q not found in %s", nameColumn, source)
			}
			opts.Names = tabular.Column(records, nameColumn)

			runCtx, stop := interruptContext(cmd.Context())
			defer stop()

			var reporter *progressReporter
			opts.Progress = func(done, total int) {
				if reporter == nil {
					reporter = newProgressReporter(cmd.OutOrStdout(), "Copying images", total, logger)
				}
				reporter.step(done, total)
			}

			started := time.Now()
			result, copyErr := batchcopy.Copy(runCtx, opts)
			interrupted := copyErr != nil && runCtx.Err() != nil
			if reporter != nil {
				reporter.stop(copyErr != nil)
			}
			if result == nil {
				return copyErr
			}

			if cfg.History.Enabled {
				run, failures := batchHistoryRun(source, opts, result, started, interrupted)
				recordHistory(cmd, cfg, logger, run, failures)
			}

			if ctx.JSONMode() {
				if err := writeJSON(cmd, newBatchReport(opts, result, interrupted)); err != nil {
					return err
				}
			} else {
				printBatchResult(cmd, opts, result, interrupted)
			}
			if interrupted {
				return nil
			}
			return copyErr
		},
	}

	cmd.Flags().StringVarP(&sourceDir, "source", "s", "", "Directory holding the named images")
	cmd.Flags().StringVarP(&targetDir, "target", "t", "", "Directory receiving the numbered folders")
	cmd.Flags().StringVar(&column, "column", "", "Column holding image file names (default from config)")
	cmd.Flags().IntVar(&perFolder, "per-folder", 0, "Images per folder")
	cmd.Flags().IntVar(&start, "start", 0, "Number of the first folder")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Folder name prefix")
	cmd.Flags().BoolVar(&verify, "verify", false, "Verify each copy with SHA-256")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

type batchFolder struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Files int    `json:"files"`
}

type batchReport struct {
	Source      string        `json:"source_dir"`
	Target      string        `json:"target_dir"`
	Requested   int           `json:"requested"`
	Copied      int           `json:"copied"`
	Missing     []string      `json:"missing"`
	Folders     []batchFolder `json:"folders"`
	Interrupted bool          `json:"interrupted"`
}

func newBatchReport(opts batchcopy.Options, result *batchcopy.Result, interrupted bool) batchReport {
	report := batchReport{
		Source:      opts.SourceDir,
		Target:      opts.TargetDir,
		Requested:   result.Requested,
		Copied:      result.Copied,
		Missing:     result.Missing,
		Folders:     make([]batchFolder, 0, len(result.Folders)),
		Interrupted: interrupted,
	}
	if report.Missing == nil {
		report.Missing = []string{}
	}
	for _, f := range result.Folders {
		report.Folders = append(report.Folders, batchFolder{Name: f.Name, Path: f.Path, Files: f.Files})
	}
	return report
}

func printBatchResult(cmd *cobra.Command, opts batchcopy.Options, result *batchcopy.Result, interrupted bool) {
	out := cmd.OutOrStdout()
	found := result.Requested - len(result.Missing)
	fmt.Fprintf(out, "Found %s of %s images in %s\n", formatCount(found), formatCount(result.Requested), opts.SourceDir)
	if interrupted {
		fmt.Fprintf(out, "Stopped early: %s of %s copied\n", formatCount(result.Copied), formatCount(found))
	}

	if len(result.Folders) > 0 {
		rows := make([][]string, 0, len(result.Folders))
		for _, f := range result.Folders {
			rows = append(rows, []string{f.Name, formatCount(f.Files), f.Path})
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, renderTable(tableSpec{
			Headers: []string{"Folder", "Files", "Path"},
			Rows:    rows,
			Footer:  []string{"Total", formatCount(result.Copied), ""},
			Aligns:  []columnAlignment{alignLeft, alignRight, alignLeft},
		}))
	}

	if len(result.Missing) == 0 {
		return
	}
	fmt.Fprintf(out, "\nNot found (%d):\n", len(result.Missing))
	for i, name := range result.Missing {
		if i == missingListLimit {
			fmt.Fprintf(out, "  ... and %d more\n", len(result.Missing)-missingListLimit)
			break
		}
		fmt.Fprintf(out, "  %s\n", name)
	}
}

func batchHistoryRun(source string, opts batchcopy.Options, result *batchcopy.Result, started time.Time, interrupted bool) (history.Run, []history.Failure) {
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	run := history.Run{
		ID:          uuid.NewString(),
		Command:     "batch",
		Source:      source,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Total:       result.Requested,
		Attempted:   result.Copied + len(result.Missing),
		Succeeded:   result.Copied,
		Failed:      len(result.Missing),
		Interrupted: interrupted,
		ArchivePath: opts.TargetDir,
		Entries:     result.Copied,
	}

	positions := make(map[string]int, len(opts.Names))
	for i, name := range opts.Names {
		if _, ok := positions[name]; !ok {
			positions[name] = i
		}
	}
	failures := make([]history.Failure, 0, len(result.Missing))
	for _, name := range result.Missing {
		failures = append(failures, history.Failure{
			RunID:    run.ID,
			RowIndex: positions[name],
			ItemID:   name,
			Kind:     "missing_file",
			Message:  "not found in " + opts.SourceDir,
		})
	}
	return run, failures
}
