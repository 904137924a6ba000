package pricing

import "errors"

// Sentinel kinds for pricing errors.
var (
	ErrDivisionByZero = errors.New("capacity must be positive")
	ErrInvalidParams  = errors.New("invalid pricing params")
)
