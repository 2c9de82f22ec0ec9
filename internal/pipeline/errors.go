package pipeline

import (
	"errors"
)

// ErrEmptyInput is returned by Run when there are no rows to process. It is
// reported before any filesystem or network access.
var ErrEmptyInput = errors.New("no input rows")

// Row-scoped failure markers. Wrapped errors keep their detail; Classify maps
// them onto a FailureKind.
var (
	ErrMissingField = errors.New("missing required field")
	ErrFetch        = errors.New("fetch failed")
	ErrDecode       = errors.New("invalid image")
)

// FailureKind labels why a row produced no artifact.
type FailureKind string

const (
	KindMissingField FailureKind = "missing_field"
	KindFetch        FailureKind = "fetch_error"
	KindDecode       FailureKind = "decode_error"
	KindUnclassified FailureKind = "unclassified"
)

// FailureKinds lists every kind in reporting order.
var FailureKinds = []FailureKind{KindMissingField, KindFetch, KindDecode, KindUnclassified}

// Classify maps a row error onto its FailureKind. A nil error has no kind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return KindMissingField
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrDecode):
		return KindDecode
	default:
		return KindUnclassified
	}
}
