package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler sends each record to every sink whose level admits it. The
// console and the JSON log file are the two sinks in practice, and they may
// run at different levels.
type teeHandler struct {
	sinks []slog.Handler
}

// TeeHandler combines handlers. Nil handlers are dropped; a single survivor
// is returned as is.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	sinks := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			sinks = append(sinks, h)
		}
	}
	switch len(sinks) {
	case 0:
		return NoopHandler{}
	case 1:
		return sinks[0]
	}
	return &teeHandler{sinks: sinks}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range t.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes to every interested sink even if an earlier one fails and
// reports the joined errors.
func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	last := len(t.sinks) - 1
	for i, sink := range t.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		r := record
		if i != last {
			// Sinks may retain the record; attrs must not be shared.
			r = record.Clone()
		}
		if err := sink.Handle(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		sinks[i] = fn(sink)
	}
	return &teeHandler{sinks: sinks}
}
