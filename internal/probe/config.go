// Package probe runs analyses against the remote transfer-function API from
// a terminal and reports outcomes, latency and step-response metrics.
package probe

import (
	"errors"
	"io"
	"time"

	"github.com/malcong/controle/internal/domain/types"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL     string        // Root of the analysis backend
	Numerator   string        // Coefficient text, as typed in the dashboard
	Denominator string        // Coefficient text, as typed in the dashboard
	TimePoints  int           // Simulation samples
	TimeEnd     float64       // Simulation horizon in seconds
	Example     bool          // Use GET /api/example instead of the coefficients
	Repeat      int           // Number of analyses to run
	Workers     int           // Concurrent analyses
	Timeout     time.Duration // Per-request timeout
	SVGDir      string        // Directory for rendered charts, empty to skip
	Verbose     bool          // Log every run
	Out         io.Writer     // Report destination
}

// Stats holds probe statistics.
type Stats struct {
	Runs       int
	Successful int
	Validation int
	Rejected   int
	Transport  int
	MinLatency time.Duration
	MaxLatency time.Duration
	TotalTime  time.Duration
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	LastResult *types.Result
	LastError  string
}

// AvgLatency returns the mean latency over all runs.
func (s *Stats) AvgLatency() time.Duration {
	if s.Runs == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Runs)
}

func (s *Stats) record(latency time.Duration, res types.Result, err error) {
	s.Runs++
	s.TotalTime += latency
	if s.Runs == 1 || latency < s.MinLatency {
		s.MinLatency = latency
	}
	if latency > s.MaxLatency {
		s.MaxLatency = latency
	}
	switch {
	case err == nil:
		s.Successful++
		s.LastResult = &res
	case errors.Is(err, types.ErrValidation):
		s.Validation++
		s.LastError = types.Message(err)
	case errors.Is(err, types.ErrDomain):
		s.Rejected++
		s.LastError = types.Message(err)
	default:
		s.Transport++
		s.LastError = types.Message(err)
	}
}
