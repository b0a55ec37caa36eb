package app

import "errors"

// ErrSuperseded is returned for a submission whose response arrived after a
// newer submission was issued. Its result is discarded.
var ErrSuperseded = errors.New("superseded by a newer submission")
