package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/malcong/controle/internal/app"
	"github.com/malcong/controle/internal/domain/chartdata"
	"github.com/malcong/controle/internal/domain/types"
	"github.com/malcong/controle/pkg/logger"
)

const maxRequestBytes = 64 << 10

// analyzeRequest mirrors the OpenAPI schema for POST /api/analyze.
// Coefficients are comma-separated text, as typed in the dashboard form.
type analyzeRequest struct {
	Numerator   string   `json:"numerator"`
	Denominator string   `json:"denominator"`
	TimePoints  *int     `json:"time_points,omitempty"`
	TimeEnd     *float64 `json:"time_end,omitempty"`
}

func (r analyzeRequest) input() app.Input {
	in := app.Input{Numerator: r.Numerator, Denominator: r.Denominator}
	if r.TimePoints != nil {
		in.TimePoints = strconv.Itoa(*r.TimePoints)
	}
	if r.TimeEnd != nil {
		in.TimeEnd = strconv.FormatFloat(*r.TimeEnd, 'f', -1, 64)
	}
	return in
}

type metricRow struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Unit    string   `json:"unit,omitempty"`
	Value   *float64 `json:"value"`
	Display string   `json:"display"`
}

type analyzeResponse struct {
	SchemaVersion    types.SchemaVersion `json:"schema_version"`
	TransferFunction string              `json:"transfer_function,omitempty"`
	Formula          string              `json:"formula,omitempty"`
	Charts           chartdata.Charts    `json:"charts"`
	StepInfo         []metricRow         `json:"step_info"`
	Message          string              `json:"message,omitempty"`
}

func newAnalyzeResponse(formula string, res types.Result) analyzeResponse {
	info := res.StepInfo.Metrics(res.Version)
	rows := make([]metricRow, len(info))
	for i, m := range info {
		rows[i] = metricRow{Key: m.Key, Label: m.Label, Unit: m.Unit, Value: m.Value, Display: m.Display()}
	}
	return analyzeResponse{
		SchemaVersion:    res.Version,
		TransferFunction: res.TransferFunction,
		Formula:          formula,
		Charts:           chartdata.Build(res),
		StepInfo:         rows,
		Message:          res.Message,
	}
}

// AnalyzeHandler serves stateless analysis requests.
type AnalyzeHandler struct {
	analyzer Analyzer
	opts     serverOptions
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(analyzer Analyzer, opts serverOptions) *AnalyzeHandler {
	if opts.log == nil {
		opts.log = logger.Nop()
	}
	return &AnalyzeHandler{analyzer: analyzer, opts: opts}
}

// HandleAnalyze handles POST /api/analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req analyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// A one-shot controller applies the same parsing, defaults and
	// validation as the dashboard.
	ctrl := app.New(h.analyzer, app.WithLogger(h.opts.log), app.WithDefaults(h.opts.timePoints, h.opts.timeEnd))
	v, err := ctrl.Submit(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalyzeResponse(v.Formula, *v.Result))
}

// HandleExample handles GET /api/example requests.
func (h *AnalyzeHandler) HandleExample(w http.ResponseWriter, r *http.Request) {
	const op = "api.example"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res, err := h.analyzer.Example(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalyzeResponse("", res))
}

func (h *AnalyzeHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, kind := classify(err)
	h.opts.log.Debug(r.Context(), "analysis request failed",
		logger.String("op", op), logger.String("code", code), logger.Error(err))
	writeError(w, status, code, WrapKind(op, kind, err))
}

// classify maps request errors onto HTTP status codes: validation 400,
// rejected analysis 422, upstream failure 502.
func classify(err error) (status int, code string, kind error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, "validation", ErrBadRequest
	case errors.Is(err, types.ErrDomain):
		return http.StatusUnprocessableEntity, "analysis_rejected", ErrRejected
	case errors.Is(err, app.ErrSuperseded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled", ErrCanceled
	default:
		return http.StatusBadGateway, "upstream_unavailable", ErrUpstream
	}
}
