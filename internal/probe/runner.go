package probe

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/malcong/controle/internal/adapters/tfapi"
	"github.com/malcong/controle/internal/domain/coeff"
	"github.com/malcong/controle/internal/domain/types"
	"github.com/malcong/controle/pkg/logger"
)

// Analyzer is the slice of the API client the probe drives.
type Analyzer interface {
	Analyze(ctx context.Context, req types.TransferFunctionRequest) (types.Result, error)
	Example(ctx context.Context) (types.Result, error)
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TimePoints == 0 {
		c.TimePoints = DefaultTimePoints
	}
	if c.TimeEnd == 0 {
		c.TimeEnd = DefaultTimeEnd
	}
	if c.Repeat <= 0 {
		c.Repeat = DefaultRepeat
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Run executes the probe against the backend at config.BaseURL.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	config.Normalize()
	client := tfapi.New(config.BaseURL,
		tfapi.WithTimeout(config.Timeout),
		tfapi.WithLogger(logger.Named("tfapi")),
	)
	return RunWith(ctx, client, config)
}

// RunWith executes the probe with the given analyzer.
func RunWith(ctx context.Context, analyzer Analyzer, config *Config) (*Stats, error) {
	config.Normalize()
	log := logger.Named("probe")

	var req types.TransferFunctionRequest
	if !config.Example {
		if config.Numerator == "" || config.Denominator == "" {
			return nil, ErrNoInput
		}
		num, den, err := coeff.ParsePair(config.Numerator, config.Denominator)
		if err != nil {
			return nil, fmt.Errorf("invalid coefficients: %w", err)
		}
		req = types.TransferFunctionRequest{
			Numerator:   num,
			Denominator: den,
			TimePoints:  config.TimePoints,
			TimeEnd:     config.TimeEnd,
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
	}

	log.Info(ctx, "starting probe",
		logger.String("baseURL", config.BaseURL),
		logger.Bool("example", config.Example),
		logger.Int("repeat", config.Repeat),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	stats := &Stats{StartTime: time.Now()}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for i := 0; i < config.Repeat; i++ {
		run := i + 1
		g.Go(func() error {
			start := time.Now()
			var (
				res types.Result
				err error
			)
			if config.Example {
				res, err = analyzer.Example(gctx)
			} else {
				res, err = analyzer.Analyze(gctx, req)
			}
			latency := time.Since(start)

			mu.Lock()
			stats.record(latency, res, err)
			mu.Unlock()

			if config.Verbose {
				log.Debug(gctx, "run finished",
					logger.Int("run", run),
					logger.Duration("latency", latency),
					logger.Bool("ok", err == nil),
					logger.String("message", messageOf(err)))
			}
			// Failed runs are counted, not propagated, so the rest keep going.
			return gctx.Err()
		})
	}
	waitErr := g.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if waitErr != nil {
		return stats, waitErr
	}
	if stats.Successful == 0 {
		return stats, fmt.Errorf("%w: %s", ErrAllFailed, stats.LastError)
	}
	return stats, nil
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return types.Message(err)
}
