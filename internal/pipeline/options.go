package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"time"
)

// Defaults applied by DefaultOptions.
const (
	DefaultURLColumn     = "Image"
	DefaultIDColumn      = "sku"
	DefaultWidth         = 1200
	DefaultHeight        = 1200
	DefaultQuality       = 90
	DefaultTimeout       = 10 * time.Second
	DefaultDirectTimeout = 15 * time.Second
)

// Row is one input record keyed by column name.
type Row = map[string]string

// Options configures a run. The value is read once when Run starts.
type Options struct {
	URLColumn string
	IDColumn  string

	Width      int
	Height     int
	Background color.NRGBA
	Quality    int

	// Timeout bounds a fetch of the URL as written. DirectTimeout applies
	// instead when ResolveDirectURL rewrote it.
	Timeout       time.Duration
	DirectTimeout time.Duration

	// Workers above 1 processes rows on a bounded pool.
	Workers int
	// WorkRoot is the parent of the per-run working area; empty uses the OS temp dir.
	WorkRoot string
	// RunID names the working area and tags logs; one is generated when empty.
	RunID string

	// Fetcher defaults to an HTTPFetcher with DefaultHeaders.
	Fetcher Fetcher
	Logger  *slog.Logger
	// Progress, if set, is called once per finished row. Calls are serialized.
	Progress func(result RowResult, done, total int)
}

// DefaultOptions returns options matching the documented defaults: 1200x1200
// white canvas, quality 90, 10s fetch timeout (15s for rewritten share links)
// and sequential processing.
func DefaultOptions() Options {
	return Options{
		URLColumn:     DefaultURLColumn,
		IDColumn:      DefaultIDColumn,
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		Background:    color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		Quality:       DefaultQuality,
		Timeout:       DefaultTimeout,
		DirectTimeout: DefaultDirectTimeout,
		Workers:       1,
	}
}

// Validate reports option combinations Run cannot honour.
func (o Options) Validate() error {
	var problems []string
	if strings.TrimSpace(o.URLColumn) == "" {
		problems = append(problems, "url column is required")
	}
	if strings.TrimSpace(o.IDColumn) == "" {
		problems = append(problems, "id column is required")
	}
	if o.Width <= 0 || o.Height <= 0 {
		problems = append(problems, fmt.Sprintf("dimensions must be positive (got %dx%d)", o.Width, o.Height))
	}
	if o.Quality < 0 || o.Quality > 100 {
		problems = append(problems, fmt.Sprintf("quality must be between 0 and 100 (got %d)", o.Quality))
	}
	if o.Timeout < 0 || o.DirectTimeout < 0 {
		problems = append(problems, "timeouts must not be negative")
	}
	if o.Workers < 0 {
		problems = append(problems, "workers must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid pipeline options: " + strings.Join(problems, "; "))
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.DirectTimeout == 0 {
		o.DirectTimeout = o.Timeout
	}
	// JPEG has no alpha; the canvas is always opaque.
	o.Background.A = 0xFF
	return o
}
