package config

import (
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
}

// Fetch contains spreadsheet column names and HTTP request settings.
type Fetch struct {
	URLColumn            string `toml:"url_column"`
	IDColumn             string `toml:"id_column"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	DirectTimeoutSeconds int    `toml:"direct_timeout_seconds"`
	Workers              int    `toml:"workers"`
	UserAgent            string `toml:"user_agent"`
	Referer              string `toml:"referer"`
	AcceptLanguage       string `toml:"accept_language"`
}

// Image contains output geometry and encoding settings.
type Image struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Background string `toml:"background"`
	Quality    int    `toml:"quality"`
}

// Batch contains settings for copying named images into numbered folders.
type Batch struct {
	Column       string `toml:"column"`
	PerFolder    int    `toml:"per_folder"`
	StartIndex   int    `toml:"start_index"`
	FolderPrefix string `toml:"folder_prefix"`
	Verify       bool   `toml:"verify"`
}

// Split contains spreadsheet chunking settings.
type Split struct {
	ChunkSize int `toml:"chunk_size"`
}

// History controls the run ledger.
type History struct {
	Enabled   bool `toml:"enabled"`
	MaxListed int  `toml:"max_listed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string `toml:"format"`
	Level          string `toml:"level"`
	RetentionDays  int    `toml:"retention_days"`
	StaleWorkHours int    `toml:"stale_work_hours"`
}

// Config encapsulates all configuration values for skupix.
//
// Configuration sections by subsystem:
//   - Paths: working area, log, and archive output directories
//   - Fetch: spreadsheet columns and request behaviour for image downloads
//   - Image: output resolution, padding colour, and JPEG quality
//   - Batch: numbered-folder copy settings
//   - Split: spreadsheet chunk size
//   - History: SQLite run ledger
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Fetch   Fetch   `toml:"fetch"`
	Image   Image   `toml:"image"`
	Batch   Batch   `toml:"batch"`
	Split   Split   `toml:"split"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`

	background color.NRGBA
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/skupix/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("skupix.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working and log directories. The output
// directory is created lazily when an archive is written.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BackgroundColor returns the parsed padding colour.
func (c *Config) BackgroundColor() color.NRGBA {
	return c.background
}

// FetchTimeout returns the request timeout for ordinary URLs.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// DirectFetchTimeout returns the request timeout for rewritten share links.
func (c *Config) DirectFetchTimeout() time.Duration {
	return time.Duration(c.Fetch.DirectTimeoutSeconds) * time.Second
}

// StaleWorkAge is the age after which an unlocked working area is considered abandoned.
func (c *Config) StaleWorkAge() time.Duration {
	return time.Duration(c.Logging.StaleWorkHours) * time.Hour
}

// HistoryPath returns the SQLite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// LogFilePath returns today's log file location. Files are named per day so
// retention can prune whole days.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "skupix-"+time.Now().Format("20060102")+".log")
}

// LogFilePattern matches every file LogFilePath can produce.
const LogFilePattern = "skupix-*.log"

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
