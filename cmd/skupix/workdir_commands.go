package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skupix/internal/logging"
	"skupix/internal/staging"
)

func newWorkdirCommand(ctx *commandContext) *cobra.Command {
	workdirCmd := &cobra.Command{
		Use:   "workdir",
		Short: "Inspect and clean per-run working areas",
	}

	workdirCmd.AddCommand(newWorkdirListCommand(ctx))
	workdirCmd.AddCommand(newWorkdirCleanCommand(ctx))

	return workdirCmd
}

type workdirView struct {
	Name      string `json:"name"`
	RunID     string `json:"run_id"`
	Path      string `json:"path"`
	Modified  string `json:"modified"`
	SizeBytes int64  `json:"size_bytes"`
	Files     int    `json:"files"`
	InUse     bool   `json:"in_use"`
}

func newWorkdirListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List working areas left under paths.work_dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			workDir := cfg.Paths.WorkDir
			dirs, err := staging.ListDirectories(workDir)
			if err != nil {
				return fmt.Errorf("list working areas: %w", err)
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if ctx.JSONMode() {
				views := make([]workdirView, 0, len(dirs))
				for _, dir := range dirs {
					views = append(views, workdirView{
						Name:      dir.Name,
						RunID:     dir.RunID,
						Path:      dir.Path,
						Modified:  dir.ModTime.UTC().Format(time.RFC3339),
						SizeBytes: dir.Size,
						Files:     dir.Files,
						InUse:     dir.InUse,
					})
				}
				return writeJSON(cmd, map[string]any{
					"work_dir":         workDir,
					"directories":      views,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No working areas found")
				return nil
			}

			fmt.Fprintf(out, "Work directory: %s\n\n", workDir)
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				rows = append(rows, []string{
					shortID(dir.RunID),
					formatDuration(age),
					formatCount(dir.Files),
					logging.FormatBytes(dir.Size),
					yesNo(dir.InUse),
				})
			}
			fmt.Fprint(out, renderTable(tableSpec{
				Headers: []string{"Run", "Age", "Files", "Size", "In use"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			}))
			fmt.Fprintf(out, "\nTotal: %d working areas, %s\n", len(dirs), logging.FormatBytes(totalSize))
			return nil
		},
	}
}

func newWorkdirCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove abandoned working areas",
		Long: `Remove working areas left behind by runs that were killed before they
could clean up.

By default only areas older than logging.stale_work_hours are removed. Use
--all to remove every area regardless of age. Areas held by a running
fetch are always kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			maxAge := cfg.StaleWorkAge()
			label := "stale"
			if cleanAll {
				maxAge = 0
				label = "unused"
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logger)
			if ctx.JSONMode() {
				return writeWorkdirCleanJSON(cmd, result)
			}
			return printWorkdirCleanResult(cmd, result, label)
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every working area not in use, regardless of age")

	return cmd
}

func printWorkdirCleanResult(cmd *cobra.Command, result staging.CleanStaleResult, label string) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s working areas to clean\n", label)
	} else if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d %s working areas, %d errors\n", len(result.Removed), label, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
	} else {
		fmt.Fprintf(out, "Removed %d %s working areas\n", len(result.Removed), label)
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped %d areas still in use\n", len(result.Skipped))
	}
	return nil
}

func writeWorkdirCleanJSON(cmd *cobra.Command, result staging.CleanStaleResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	return writeJSON(cmd, map[string]any{
		"removed": len(result.Removed),
		"skipped": len(result.Skipped),
		"errors":  errs,
	})
}
