package engine

import (
	"errors"
	"fmt"
)

// Sentinel kinds for engine errors. Per-reading kinds arrive wrapped in a
// *ReadingError; use errors.Is to classify.
var (
	ErrInvalidCapacity   = errors.New("invalid capacity")
	ErrMissingField      = errors.New("missing field")
	ErrUnknownEnumValue  = errors.New("unknown enum value")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidCount      = errors.New("invalid count")
	ErrStaleReading      = errors.New("stale reading")

	ErrEmptyBatch    = errors.New("empty batch")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrNotFound      = errors.New("lot not found")
)

// ReadingError describes why one reading was rejected.
type ReadingError struct {
	LotID string
	Field string
	Err   error
}

func (e *ReadingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("lot %q: %v", e.LotID, e.Err)
	}
	return fmt.Sprintf("lot %q: %s: %v", e.LotID, e.Field, e.Err)
}

func (e *ReadingError) Unwrap() error { return e.Err }

// Reason maps an engine error to a stable snake_case label for metrics and
// API responses.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCapacity):
		return "invalid_capacity"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrUnknownEnumValue):
		return "unknown_enum_value"
	case errors.Is(err, ErrInvalidCoordinate):
		return "invalid_coordinate"
	case errors.Is(err, ErrInvalidCount):
		return "invalid_count"
	case errors.Is(err, ErrStaleReading):
		return "stale_reading"
	case errors.Is(err, ErrEmptyBatch):
		return "empty_batch"
	case errors.Is(err, ErrBatchTooLarge):
		return "batch_too_large"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "internal"
}
