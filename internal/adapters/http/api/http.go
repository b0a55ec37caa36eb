// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/malcong/controle/internal/domain/types"
	"github.com/malcong/controle/pkg/logger"
)

// Analyzer is what the JSON handlers need from the analysis client.
type Analyzer interface {
	Analyze(ctx context.Context, req types.TransferFunctionRequest) (types.Result, error)
	Example(ctx context.Context) (types.Result, error)
}

// Server wires HTTP routes for the JSON API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	analyzeHandler   *AnalyzeHandler
	formatHandler    *FormatHandler
	dashboardHandler *dashboardHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	log        logger.Logger
	timePoints int
	timeEnd    float64
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithDefaults sets simulation parameters for requests that omit them.
func WithDefaults(timePoints int, timeEnd float64) Option {
	return func(o *serverOptions) {
		o.timePoints, o.timeEnd = timePoints, timeEnd
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(analyzer Analyzer, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		analyzeHandler:   NewAnalyzeHandler(analyzer, o),
		formatHandler:    NewFormatHandler(),
		dashboardHandler: newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("/ops", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("/api/example", MetricsMiddleware(s.analyzeHandler.HandleExample, "example"))
	mux.HandleFunc("/api/format", MetricsMiddleware(s.formatHandler.HandleFormat, "format"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the user-facing message of err. Request errors carry
// their own message; everything else falls back to the status text.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = userMessage(err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func userMessage(err error) string {
	var re *types.RequestError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}
