package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"skupix/internal/config"
	"skupix/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		runID  string
		level  string
		event  string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log records",
		Long: `Print the last records of the newest log file under paths.log_dir.
Records can be narrowed to one run (--run accepts an id prefix), a minimum
level, or an event type such as row_failed. Use --follow to keep printing
records as another skupix command writes them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			minLevel, err := logs.LevelFilter(level)
			if err != nil {
				return fmt.Errorf("--level: %w", err)
			}

			path := strings.TrimSpace(file)
			if path == "" {
				path, err = logs.Latest(cfg.Paths.LogDir, config.LogFilePattern)
				if errors.Is(err, logs.ErrNoLogs) {
					fmt.Fprintln(cmd.OutOrStdout(), "No log files yet")
					return nil
				}
				if err != nil {
					return err
				}
			}

			runCtx, stop := interruptContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			opts := logs.TailOptions{
				Limit:  lines,
				Follow: follow,
				Filter: logs.Filter{RunID: strings.TrimSpace(runID), MinLevel: minLevel, Event: strings.TrimSpace(event)},
			}
			return logs.Tail(runCtx, path, opts, func(line string) error {
				_, err := fmt.Fprintln(out, line)
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records")
	cmd.Flags().StringVar(&runID, "run", "", "Only records of this run id (prefix)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&event, "event", "", "Only records with this event_type")
	cmd.Flags().StringVar(&file, "file", "", "Read this log file instead of the newest one")
	return cmd
}
