package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"skupix/internal/config"
	"skupix/internal/fileutil"
	"skupix/internal/history"
	"skupix/internal/logging"
	"skupix/internal/pipeline"
	"skupix/internal/staging"
	"skupix/internal/tabular"
)

// defaultArchiveName is used when --out is omitted or names a directory.
const defaultArchiveName = "resized_images.zip"

var errEmptySpreadsheet = errors.New("CSV file is empty or incorrectly formatted")

type fetchFlags struct {
	out        string
	urlColumn  string
	idColumn   string
	width      int
	height     int
	background string
	quality    int
	timeout    time.Duration
	workers    int
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch <csv|xlsx>",
		Short: "Download, resize and zip the images listed in a spreadsheet",
		Long: `Download the image referenced by each spreadsheet row, pad it onto a
fixed-size canvas, and package every result into one zip archive.

Each row needs a URL column (default "Image") and an id column (default
"sku"); the id names the file inside the archive. Rows that cannot be
fetched or decoded are reported and skipped. Press Ctrl+C to stop issuing
new rows; whatever finished is still archived.`,
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

			opts, err := fetchOptions(cmd, cfg, flags)
			if err != nil {
				return err
			}
			opts.Logger = logger

			source := args[0]
			records, header, err := tabular.ReadFile(source)
			if errors.Is(err, tabular.ErrNoHeader) || (err == nil && len(records) == 0) {
				return errEmptySpreadsheet
			}
			if err != nil {
				return fmt.Errorf("read spreadsheet: %w", err)
			}
			warnMissingColumns(logger, header, opts.URLColumn, opts.IDColumn)

			target, err := archivePath(cfg, flags.out)
			if err != nil {
				return err
			}

			staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, cfg.StaleWorkAge(), logger)

			runCtx, stop := interruptContext(cmd.Context())
			defer stop()

			reporter := newProgressReporter(cmd.OutOrStdout(), "Fetching images", len(records), logger)
			opts.Progress = func(_ pipeline.RowResult, done, total int) {
				reporter.step(done, total)
			}

			archive, summary, err := pipeline.Run(runCtx, records, opts)
			reporter.stop(summary != nil && summary.Interrupted)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := fileutil.WriteFileAtomic(target, archive.Data, 0o644); err != nil {
				return fmt.Errorf("write archive: %w", err)
			}

			if cfg.History.Enabled {
				run, failures := fetchHistoryRun(source, target, archive, summary)
				recordHistory(cmd, cfg, logger, run, failures)
			}

			report := newFetchReport(source, target, archive, summary)
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}
			printFetchReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Archive path or directory (default <output_dir>/resized_images.zip)")
	cmd.Flags().StringVar(&flags.urlColumn, "url-column", "", "Column holding the image URL")
	cmd.Flags().StringVar(&flags.idColumn, "id-column", "", "Column holding the id used as the file name")
	cmd.Flags().IntVar(&flags.width, "width", 0, "Output width in pixels")
	cmd.Flags().IntVar(&flags.height, "height", 0, "Output height in pixels")
	cmd.Flags().StringVar(&flags.background, "background", "", "Padding colour as #RRGGBB")
	cmd.Flags().IntVar(&flags.quality, "quality", 0, "JPEG quality 0-100")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per-request timeout (e.g. 10s)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Rows fetched concurrently")

	return cmd
}

// pipelineOptions converts configuration into run options.
func pipelineOptions(cfg *config.Config) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.URLColumn = cfg.Fetch.URLColumn
	opts.IDColumn = cfg.Fetch.IDColumn
	opts.Width = cfg.Image.Width
	opts.Height = cfg.Image.Height
	opts.Background = cfg.BackgroundColor()
	opts.Quality = cfg.Image.Quality
	opts.Timeout = cfg.FetchTimeout()
	opts.DirectTimeout = cfg.DirectFetchTimeout()
	opts.Workers = cfg.Fetch.Workers
	opts.WorkRoot = cfg.Paths.WorkDir
	opts.Fetcher = pipeline.NewHTTPFetcher(nil, pipeline.Headers{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Referer:        cfg.Fetch.Referer,
	})
	return opts
}

// fetchOptions layers explicitly set flags over the configured options.
func fetchOptions(cmd *cobra.Command, cfg *config.Config, flags fetchFlags) (pipeline.Options, error) {
	opts := pipelineOptions(cfg)
	changed := cmd.Flags().Changed

	if changed("url-column") {
		opts.URLColumn = strings.TrimSpace(flags.urlColumn)
	}
	if changed("id-column") {
		opts.IDColumn = strings.TrimSpace(flags.idColumn)
	}
	if changed("width") {
		opts.Width = flags.width
	}
	if changed("height") {
		opts.Height = flags.height
	}
	if changed("quality") {
		opts.Quality = flags.quality
	}
	if changed("background") {
		bg, err := config.ParseHexColor(flags.background)
		if err != nil {
			return opts, fmt.Errorf("--background: %w", err)
		}
		opts.Background = bg
	}
	if changed("timeout") {
		if flags.timeout <= 0 {
			return opts, fmt.Errorf("--timeout must be positive")
		}
		// An explicit timeout applies to rewritten share links as well.
		opts.Timeout = flags.timeout
		opts.DirectTimeout = flags.timeout
	}
	if changed("workers") {
		if flags.workers < 1 {
			return opts, fmt.Errorf("--workers must be at least 1")
		}
		opts.Workers = flags.workers
	}
	if err := config.ValidateGeometry(opts.Width, opts.Height, opts.Quality); err != nil {
		return opts, err
	}
	return opts, nil
}

func archivePath(cfg *config.Config, out string) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return filepath.Join(cfg.Paths.OutputDir, defaultArchiveName), nil
	}
	expanded, err := config.ExpandPath(out)
	if err != nil {
		return "", fmt.Errorf("resolve --out: %w", err)
	}
	if info, err := os.Stat(expanded); err == nil && info.IsDir() {
		return filepath.Join(expanded, defaultArchiveName), nil
	}
	return expanded, nil
}

func warnMissingColumns(logger *slog.Logger, header []string, columns ...string) {
	for _, column := range columns {
		if tabular.HasColumn(header, column) {
			continue
		}
		logging.WarnWithContext(logger, "spreadsheet column not found", "column_missing",
			logging.String("column", column),
			logging.String("columns", strings.Join(header, ", ")),
			logging.String(logging.FieldErrorHint, "pass --url-column/--id-column or fix the header row"),
			logging.String(logging.FieldImpact, "every row will fail with missing_field"),
		)
	}
}

func fetchHistoryRun(source, target string, archive *pipeline.Archive, summary *pipeline.Summary) (history.Run, []history.Failure) {
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	run := history.Run{
		ID:           summary.RunID,
		Command:      "fetch",
		Source:       source,
		StartedAt:    summary.Started,
		FinishedAt:   summary.Finished,
		Total:        summary.Total,
		Attempted:    summary.Attempted,
		Succeeded:    summary.Succeeded,
		Failed:       summary.Failed,
		Interrupted:  summary.Interrupted,
		ArchivePath:  target,
		ArchiveBytes: archive.Size(),
		Entries:      len(archive.Entries),
	}
	failures := make([]history.Failure, 0, len(summary.Failures))
	for _, f := range summary.Failures {
		failures = append(failures, history.Failure{
			RunID:    summary.RunID,
			RowIndex: f.Index,
			ItemID:   f.ID,
			URL:      f.URL,
			Kind:     string(f.Kind),
			Message:  errorText(f.Err),
		})
	}
	return run, failures
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
