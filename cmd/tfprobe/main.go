package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/malcong/controle/internal/adapters/render"
	"github.com/malcong/controle/internal/probe"
	"github.com/malcong/controle/pkg/logger"
)

const defaultProbeTimeout = 10 * time.Minute

func main() {
	var (
		baseURL     = flag.String("url", probe.DefaultBaseURL, "Base URL of the analysis backend")
		numerator   = flag.String("numerator", "", "Numerator coefficients, highest power first")
		denominator = flag.String("denominator", "", "Denominator coefficients, highest power first")
		points      = flag.Int("points", probe.DefaultTimePoints, "Simulation time points")
		timeEnd     = flag.Float64("time", probe.DefaultTimeEnd, "Simulation end time in seconds")
		example     = flag.Bool("example", false, "Analyze the backend's built-in example")
		repeat      = flag.Int("repeat", probe.DefaultRepeat, "Number of analyses to run")
		workers     = flag.Int("workers", runtime.NumCPU(), "Concurrent analyses")
		timeout     = flag.Duration("timeout", probe.DefaultTimeout, "Per-request timeout")
		svgDir      = flag.String("svg-dir", "", "Directory for SVG charts of the last success")
		logFile     = flag.String("log", "", "Also append log output to this file")
		verbose     = flag.Bool("verbose", false, "Log every run")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp(os.Stdout)
		return
	}

	closeLog, err := probe.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	config := &probe.Config{
		BaseURL:     *baseURL,
		Numerator:   *numerator,
		Denominator: *denominator,
		TimePoints:  *points,
		TimeEnd:     *timeEnd,
		Example:     *example,
		Repeat:      *repeat,
		Workers:     *workers,
		Timeout:     *timeout,
		SVGDir:      *svgDir,
		Verbose:     *verbose,
		Out:         os.Stdout,
	}

	stats, runErr := probe.Run(ctx, config)
	if stats != nil {
		_ = probe.WriteReport(config.Out, stats)
		if config.SVGDir != "" {
			paths, err := probe.WriteCharts(config.SVGDir, stats, render.New())
			if err != nil {
				logger.Get().Error(ctx, "failed to write charts", logger.Error(err))
			}
			for _, p := range paths {
				logger.Get().Info(ctx, "chart written", logger.String("path", p))
			}
		}
	}
	if runErr != nil {
		logger.Get().Error(ctx, "probe failed", logger.Error(runErr))
		closeLog()
		os.Exit(1)
	}
}
