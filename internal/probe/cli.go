package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/malcong/controle/pkg/logger"
)

// SetupLogging initializes the global logger on stdout, also appending to
// logFile when it is set.
func SetupLogging(logFile string, verbose bool) (func(), error) {
	var out io.Writer = os.Stdout
	closeFn := func() {}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closeFn = func() { _ = file.Close() }
	}
	if err := logger.Init(logger.WithWriter(out)); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)
	return closeFn, nil
}

// ShowHelp prints usage information for the probe tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Transfer Function Probe
=======================

Runs analyses against the transfer-function API and reports outcomes,
latency and step-response characteristics.

Usage:
  go run ./cmd/tfprobe [options]

Options:
  -url string
        Base URL of the analysis backend (default "`+DefaultBaseURL+`")
  -numerator string
        Numerator coefficients, highest power first (e.g. "16")
  -denominator string
        Denominator coefficients, highest power first (e.g. "1, 5.6, 16")
  -points int
        Simulation time points, 1 to 100 (default 40)
  -time float
        Simulation end time in seconds, up to 5 (default 3)
  -example
        Analyze the backend's built-in example instead
  -repeat int
        Number of analyses to run (default 1)
  -workers int
        Concurrent analyses (default CPU cores)
  -timeout duration
        Per-request timeout (default 15s)
  -svg-dir string
        Write impulse/step/ramp/comparison SVG charts of the last success here
  -log string
        Also append log output to this file
  -verbose
        Log every run
  -help
        Show this help message

Examples:
  go run ./cmd/tfprobe -numerator 16 -denominator "1, 5.6, 16"
  go run ./cmd/tfprobe -example -repeat 50 -workers 8
  go run ./cmd/tfprobe -numerator "1, 2" -denominator "1, 3, 2" -svg-dir charts
`)
}
