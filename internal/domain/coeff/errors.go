package coeff

import "errors"

// Sentinel causes attached to parse failures.
var (
	ErrMalformed = errors.New("malformed coefficient")
	ErrNotFinite = errors.New("coefficient not finite")
)
