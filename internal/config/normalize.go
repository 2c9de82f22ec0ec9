package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	if err := c.normalizeImage(); err != nil {
		return err
	}
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	c.Fetch.URLColumn = strings.TrimSpace(c.Fetch.URLColumn)
	if c.Fetch.URLColumn == "" {
		c.Fetch.URLColumn = defaultURLColumn
	}
	c.Fetch.IDColumn = strings.TrimSpace(c.Fetch.IDColumn)
	if c.Fetch.IDColumn == "" {
		c.Fetch.IDColumn = defaultIDColumn
	}
	if c.Fetch.Workers == 0 {
		c.Fetch.Workers = defaultWorkers
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if value, ok := os.LookupEnv("SKUPIX_USER_AGENT"); ok && strings.TrimSpace(value) != "" {
		c.Fetch.UserAgent = strings.TrimSpace(value)
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
	c.Fetch.Referer = strings.TrimSpace(c.Fetch.Referer)
	c.Fetch.AcceptLanguage = strings.TrimSpace(c.Fetch.AcceptLanguage)
	if c.Fetch.AcceptLanguage == "" {
		c.Fetch.AcceptLanguage = defaultAcceptLanguage
	}
}

func (c *Config) normalizeImage() error {
	c.Image.Background = strings.TrimSpace(c.Image.Background)
	if c.Image.Background == "" {
		c.Image.Background = defaultBackground
	}
	bg, err := ParseHexColor(c.Image.Background)
	if err != nil {
		return fmt.Errorf("image.background: %w", err)
	}
	c.background = bg
	c.Image.Background = FormatHexColor(bg)
	return nil
}

func (c *Config) normalizeBatch() {
	c.Batch.Column = strings.TrimSpace(c.Batch.Column)
	if c.Batch.Column == "" {
		c.Batch.Column = defaultBatchColumn
	}
	c.Batch.FolderPrefix = strings.TrimSpace(c.Batch.FolderPrefix)
	if c.Batch.FolderPrefix == "" {
		c.Batch.FolderPrefix = defaultFolderPrefix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("SKUPIX_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.StaleWorkHours <= 0 {
		c.Logging.StaleWorkHours = defaultStaleWorkHours
	}
}
