package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if c.Split.ChunkSize <= 0 {
		return errors.New("split.chunk_size must be positive")
	}
	if c.History.MaxListed <= 0 {
		return errors.New("history.max_listed must be positive")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.timeout_seconds":        c.Fetch.TimeoutSeconds,
		"fetch.direct_timeout_seconds": c.Fetch.DirectTimeoutSeconds,
		"fetch.workers":                c.Fetch.Workers,
	}); err != nil {
		return err
	}
	if c.Fetch.Workers > maxWorkers {
		return fmt.Errorf("fetch.workers must be at most %d", maxWorkers)
	}
	if c.Fetch.URLColumn == c.Fetch.IDColumn {
		return errors.New("fetch.url_column and fetch.id_column must differ")
	}
	return nil
}

func (c *Config) validateImage() error {
	if err := ValidateGeometry(c.Image.Width, c.Image.Height, c.Image.Quality); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	return nil
}

// ValidateGeometry checks output dimensions and JPEG quality. The CLI reuses it
// for flag overrides.
func ValidateGeometry(width, height, quality int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("width and height must be positive (got %dx%d)", width, height)
	}
	if quality < 0 || quality > 100 {
		return fmt.Errorf("quality must be between 0 and 100 (got %d)", quality)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.PerFolder <= 0 {
		return errors.New("batch.per_folder must be positive")
	}
	if c.Batch.StartIndex < 1 {
		return errors.New("batch.start_index must be at least 1")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
