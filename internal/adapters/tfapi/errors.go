package tfapi

import "errors"

// Causes attached to *types.RequestError.Err. The user-facing kind is always
// one of types.ErrTransport or types.ErrDomain.
var (
	ErrStatus            = errors.New("unexpected status")
	ErrRejected          = errors.New("analysis rejected")
	ErrMalformedResponse = errors.New("malformed response")
)
