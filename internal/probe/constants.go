package probe

import "time"

// Defaults applied by Normalize.
const (
	DefaultBaseURL    = "https://controle.malcong.com.br"
	DefaultTimePoints = 40
	DefaultTimeEnd    = 3.0
	DefaultRepeat     = 1
	DefaultTimeout    = 15 * time.Second
)

// File permission constants.
const (
	logFilePermission   = 0600
	directoryPermission = 0750
	svgFilePermission   = 0644
)
