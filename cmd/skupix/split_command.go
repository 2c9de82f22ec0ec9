package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"skupix/internal/config"
	"skupix/internal/logging"
	"skupix/internal/tabular"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var chunkSize int
	var outDir string

	cmd := &cobra.Command{
		Use:   "split <csv|xlsx>",
		Short: "Split a large spreadsheet into smaller files",
		Long: `Write the rows of a CSV or XLSX file into <name>_part1, <name>_part2, ...
in the same format, each holding at most --chunk-size rows plus the header.
For workbooks only the first sheet is read. Parts go to
<name>_split next to the input unless --out-dir is given.`,
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

			size := cfg.Split.ChunkSize
			if cmd.Flags().Changed("chunk-size") {
				if chunkSize < 1 {
					return fmt.Errorf("--chunk-size must be at least 1")
				}
				size = chunkSize
			}

			source := args[0]
			target := tabular.SplitDir(source)
			if outDir != "" {
				if target, err = config.ExpandPath(outDir); err != nil {
					return fmt.Errorf("resolve --out-dir: %w", err)
				}
			}

			parts, err := tabular.Split(cmd.Context(), source, target, size)
			if errors.Is(err, tabular.ErrNoHeader) {
				return errEmptySpreadsheet
			}
			if err != nil {
				return fmt.Errorf("split %s: %w", source, err)
			}
			logger.Info("spreadsheet split",
				logging.String("source", source),
				logging.Int("parts", len(parts)),
				logging.Int("chunk_size", size),
				logging.String(logging.FieldEventType, "split_done"),
			)

			if ctx.JSONMode() {
				if parts == nil {
					parts = []string{}
				}
				return writeJSON(cmd, map[string]any{
					"source":     source,
					"out_dir":    target,
					"chunk_size": size,
					"parts":      parts,
				})
			}

			out := cmd.OutOrStdout()
			if len(parts) == 0 {
				fmt.Fprintf(out, "%s has a header but no rows; nothing written\n", source)
				return nil
			}
			fmt.Fprintf(out, "Wrote %d files of up to %s rows to %s\n", len(parts), formatCount(size), target)
			for _, part := range parts {
				fmt.Fprintf(out, "  %s\n", filepath.Base(part))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Rows per output file (default split.chunk_size)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory for the output files")
	return cmd
}
