package probe

import "errors"

// Error constants.
var (
	ErrNoInput   = errors.New("numerator and denominator are required unless -example is set")
	ErrAllFailed = errors.New("every analysis failed")
)
