package config

import (
	"errors"
)

// Sentinel errors for configuration loading. Load wraps them so callers can
// match with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
