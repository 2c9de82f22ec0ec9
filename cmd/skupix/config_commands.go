package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"skupix/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	cmd.AddCommand(newConfigValidateCommand(ctx), newConfigInitCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		path      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(path)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("inspect %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set [fetch] url_column and id_column to your spreadsheet headers before running `skupix fetch`.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Where to write the file (default: user config dir)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("default config path: %w", err)
		}
		return target, nil
	}
	target, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"path": path, "exists": exists, "valid": true})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "No file found; built-in defaults apply")
			}
			fmt.Fprint(out, renderTable(settingsTable(cfg)))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func settingsTable(cfg *config.Config) tableSpec {
	workers := strconv.Itoa(cfg.Fetch.Workers)
	if cfg.Fetch.Workers <= 1 {
		workers = "1 (sequential)"
	}
	return tableSpec{
		Title:   "Effective settings",
		Headers: []string{"Setting", "Value"},
		Rows: [][]string{
			{"Work dir", cfg.Paths.WorkDir},
			{"Output dir", cfg.Paths.OutputDir},
			{"Log dir", cfg.Paths.LogDir},
			{"Columns", cfg.Fetch.IDColumn + " / " + cfg.Fetch.URLColumn},
			{"Image", fmt.Sprintf("%dx%d on %s, quality %d", cfg.Image.Width, cfg.Image.Height, cfg.Image.Background, cfg.Image.Quality)},
			{"Timeout", fmt.Sprintf("%s (direct links %s)", cfg.FetchTimeout(), cfg.DirectFetchTimeout())},
			{"Workers", workers},
			{"History", yesNo(cfg.History.Enabled)},
		},
	}
}
