package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/malcong/controle/internal/adapters/http/api"
	"github.com/malcong/controle/internal/adapters/http/site"
	"github.com/malcong/controle/internal/adapters/http/swagger"
	"github.com/malcong/controle/internal/adapters/render"
	"github.com/malcong/controle/internal/adapters/session"
	"github.com/malcong/controle/internal/adapters/tfapi"
	"github.com/malcong/controle/internal/app"
	"github.com/malcong/controle/internal/config"
	"github.com/malcong/controle/pkg/logger"
	"github.com/malcong/controle/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	writeTimeoutSlack         = 5 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(metricsOptions(cfg)...)

	handler, closeApp := newHandler(ctx, cfg, log)
	defer closeApp()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      max(writeTimeout, cfg.RequestTimeout()+writeTimeoutSlack),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("api_base_url", cfg.APIBaseURL),
			logger.String("route_mode", cfg.RouteMode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newHandler wires the analysis client, the dashboard, the JSON API and the
// API reference onto one mux. The returned func cancels in-flight requests
// of every live session.
func newHandler(ctx context.Context, cfg *config.Config, log logger.Logger) (http.Handler, func()) {
	client := tfapi.New(cfg.APIBaseURL,
		tfapi.WithTimeout(cfg.RequestTimeout()),
		tfapi.WithRateLimit(cfg.UpstreamRPS, cfg.UpstreamBurst),
		tfapi.WithLogger(log.Named("tfapi")),
	)

	sessions := session.New(func() *app.Controller {
		return app.New(client,
			app.WithLogger(log.Named("dashboard")),
			app.WithDefaults(cfg.TimePoints, cfg.TimeEnd))
	},
		session.WithMaxSize(cfg.MaxSessions),
		session.WithOnEvict(func(_ string, v any) {
			if c, ok := v.(*app.Controller); ok {
				c.Close()
			}
		}),
	)

	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	stats := newStatsProvider(sessions, cfg)
	api.NewServer(client, stats,
		api.WithLogger(log.Named("api")),
		api.WithDefaults(cfg.TimePoints, cfg.TimeEnd),
	).Register(ctx, mux)

	site.New(sessions, render.New(render.WithSize(cfg.ChartWidth, cfg.ChartHeight)),
		site.WithAppName(cfg.AppName),
		site.WithAnalyticsToken(cfg.AnalyticsToken),
		site.WithHashRoute(cfg.RouteMode == config.RouteModeHash),
		site.WithDefaults(cfg.TimePoints, cfg.TimeEnd),
		site.WithSecureCookie(cfg.SecureCookie),
		site.WithLogger(log.Named("site")),
	).Register(ctx, mux)

	return mux, sessions.Close
}

// metricsOptions maps the metrics section of cfg. cfg has already been
// validated, so the labels parse.
func metricsOptions(cfg *config.Config) []metrics.Option {
	labels, _ := cfg.ConstLabels()
	return []metrics.Option{
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithConstLabels(labels),
		metrics.WithUpstreamRecording(cfg.MetricsUpstream),
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
