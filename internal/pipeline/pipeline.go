package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"skupix/internal/logging"
	"skupix/internal/staging"
)

// ArtifactExt is appended to each row id to name its artifact.
const ArtifactExt = ".jpg"

// Run processes rows and returns the archive of every artifact produced.
//
// Empty input fails with ErrEmptyInput before anything touches the disk or
// network. Row failures are recorded in the Summary and never abort the run.
// Cancelling ctx stops new rows from starting; rows already in flight finish
// and the archive is still built from what succeeded. The working area is
// removed on every return path.
func Run(ctx context.Context, rows []Row, opts Options) (*Archive, *Summary, error) {
	if len(rows) == 0 {
		return nil, nil, ErrEmptyInput
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	opts = opts.withDefaults()

	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "pipeline"))

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil, DefaultHeaders())
	}

	area, err := staging.Acquire(opts.WorkRoot, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("create working area: %w", err)
	}
	defer func() {
		if err := area.Release(); err != nil {
			logging.WarnWithContext(logger, "working area cleanup failed", "workdir_release_failed",
				logging.String("path", area.Dir()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run `skupix workdir clean`"),
				logging.String(logging.FieldImpact, "temporary files remain on disk"),
			)
		}
	}()

	logger.Info("pipeline run started",
		logging.Int("rows", len(rows)),
		logging.Int("workers", opts.Workers),
		logging.String("size", fmt.Sprintf("%dx%d", opts.Width, opts.Height)),
		logging.String("work_dir", area.Dir()),
		logging.String(logging.FieldEventType, "run_started"),
	)

	summary := newSummary(runID, len(rows))
	p := &processor{opts: opts, fetcher: fetcher, area: area, logger: logger}

	var mu sync.Mutex
	done := 0
	finish := func(r RowResult) {
		mu.Lock()
		defer mu.Unlock()
		summary.record(r)
		done++
		if opts.Progress != nil {
			opts.Progress(r, done, len(rows))
		}
	}

	// Rows already started run to completion on a context that ignores the
	// caller's cancellation; only issuing stops.
	rowCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i, row := range rows {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			finish(p.process(rowCtx, i, row))
			return nil
		})
	}
	_ = g.Wait()
	summary.finish()

	if summary.Interrupted {
		logging.WarnWithContext(logger, "pipeline run interrupted", "run_interrupted",
			logging.Int("attempted", summary.Attempted),
			logging.Int("total", summary.Total),
			logging.String(logging.FieldErrorHint, "rerun with the remaining rows"),
			logging.String(logging.FieldImpact, "rows after the interruption were not processed"),
		)
	}

	archive, err := BuildArchive(area.Dir())
	if err != nil {
		return nil, summary, fmt.Errorf("build archive: %w", err)
	}

	logger.Info("pipeline run finished",
		logging.Int("attempted", summary.Attempted),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("entries", len(archive.Entries)),
		logging.Int64("archive_bytes", archive.Size()),
		logging.Duration("elapsed", summary.Elapsed()),
		logging.Bool("interrupted", summary.Interrupted),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	return archive, summary, nil
}

type processor struct {
	opts    Options
	fetcher Fetcher
	area    *staging.Area
	logger  *slog.Logger
}

func (p *processor) process(ctx context.Context, index int, row Row) (result RowResult) {
	start := time.Now()
	result = RowResult{
		Index: index,
		// The id names the artifact verbatim; only the URL is trimmed.
		ID:  row[p.opts.IDColumn],
		URL: strings.TrimSpace(row[p.opts.URLColumn]),
	}
	logger := logging.WithContext(logging.WithRow(ctx, index+1, result.ID), p.logger)

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic while processing row: %v", r)
		}
		result.Kind = Classify(result.Err)
		result.Duration = time.Since(start)
		if result.Err != nil {
			p.logFailure(logger, result)
		}
	}()

	if missing := p.missingFields(result); len(missing) > 0 {
		result.Err = fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
		return result
	}

	size, superseded, err := p.produce(ctx, logger, index, result.ID, result.URL)
	if err != nil {
		result.Err = err
		return result
	}
	result.Bytes = size
	result.Superseded = superseded
	logger.Debug("row processed",
		logging.Int64("artifact_bytes", size),
		logging.Bool("superseded", superseded),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result
}

func (p *processor) missingFields(r RowResult) []string {
	var missing []string
	if r.URL == "" {
		missing = append(missing, p.opts.URLColumn)
	}
	if r.ID == "" {
		missing = append(missing, p.opts.IDColumn)
	}
	return missing
}

// produce fetches, decodes, normalizes and stores one artifact.
func (p *processor) produce(ctx context.Context, logger *slog.Logger, index int, id, url string) (int64, bool, error) {
	target := ResolveDirectURL(url)
	timeout := p.opts.Timeout
	if target != url {
		timeout = p.opts.DirectTimeout
		logger.Debug("share link rewritten", logging.String("url", target))
	}

	res, err := p.fetcher.Fetch(ctx, target, timeout)
	if err != nil {
		return 0, false, err
	}

	img, info, err := Decode(res.Body)
	if err != nil {
		return 0, false, err
	}
	logger.Debug("image decoded",
		logging.String("format", info.Format),
		logging.String("source_size", fmt.Sprintf("%dx%d", info.Width, info.Height)),
		logging.Int("source_bytes", len(res.Body)),
	)

	canvas := Normalize(img, p.opts.Width, p.opts.Height, p.opts.Background)
	var buf bytes.Buffer
	if err := Encode(&buf, canvas, p.opts.Quality); err != nil {
		return 0, false, err
	}

	written, err := p.area.Write(id+ArtifactExt, index, buf.Bytes())
	if err != nil {
		return 0, false, err
	}
	return int64(buf.Len()), !written, nil
}

func (p *processor) logFailure(logger *slog.Logger, r RowResult) {
	hint := "check the row's url and id columns"
	switch r.Kind {
	case KindFetch:
		hint = "open the url in a browser; the host may block the request or not serve an image"
		if timeoutError(r.Err) {
			hint = "raise fetch.timeout_seconds or check connectivity"
		}
	case KindDecode:
		hint = "the url returned bytes that are not a supported image"
	case KindUnclassified:
		hint = "see error for details"
	}
	logging.WarnWithContext(logger, "row skipped", "row_failed",
		logging.String("failure_kind", string(r.Kind)),
		logging.String("url", r.URL),
		logging.Error(r.Err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "row has no image in the archive"),
	)
}
