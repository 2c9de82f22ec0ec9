package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	runIDKey contextKey = "run_id"
	rowKey   contextKey = "row"
	skuKey   contextKey = "sku"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	return v, ok && v != ""
}

// WithRow annotates context with a 1-based row number and, when known, its SKU.
func WithRow(ctx context.Context, row int, sku string) context.Context {
	ctx = context.WithValue(ctx, rowKey, row)
	if sku != "" {
		ctx = context.WithValue(ctx, skuKey, sku)
	}
	return ctx
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if row, ok := ctx.Value(rowKey).(int); ok {
		fields = append(fields, slog.Int(FieldRow, row))
	}
	if sku, ok := ctx.Value(skuKey).(string); ok && sku != "" {
		fields = append(fields, slog.String(FieldSKU, sku))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
