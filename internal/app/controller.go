// Package app holds the dashboard controller: the state machine that turns
// form input into analysis requests and keeps the latest charts.
package app

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/malcong/controle/internal/domain/chartdata"
	"github.com/malcong/controle/internal/domain/coeff"
	"github.com/malcong/controle/internal/domain/types"
	"github.com/malcong/controle/pkg/logger"
	"github.com/malcong/controle/pkg/metrics"
)

const (
	defaultTimePoints = 40
	defaultTimeEnd    = 3.0
)

// Query parameter names shared with share links.
const (
	ParamNumerator   = "numerator"
	ParamDenominator = "denominator"
	ParamTimePoints  = "time_points"
	ParamTimeEnd     = "time_end"
)

// Analyzer performs one analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, req types.TransferFunctionRequest) (types.Result, error)
}

// Input is the raw form content. Empty time fields fall back to the
// controller defaults.
type Input struct {
	Numerator   string `json:"numerator"`
	Denominator string `json:"denominator"`
	TimePoints  string `json:"time_points,omitempty"`
	TimeEnd     string `json:"time_end,omitempty"`
}

// Query encodes the input as share-link parameters.
func (in Input) Query() url.Values {
	q := url.Values{}
	q.Set(ParamNumerator, in.Numerator)
	q.Set(ParamDenominator, in.Denominator)
	if in.TimePoints != "" {
		q.Set(ParamTimePoints, in.TimePoints)
	}
	if in.TimeEnd != "" {
		q.Set(ParamTimeEnd, in.TimeEnd)
	}
	return q
}

// View is an immutable snapshot of the controller for rendering.
type View struct {
	State   State
	// Nonce is fixed for the controller's lifetime and differs between
	// controllers, so Nonce and Seq together identify one result.
	Nonce   string
	Seq     uint64
	Input   Input
	Formula string
	// Result is nil until the first successful response.
	Result  *types.Result
	Charts  chartdata.Charts
	Metrics []types.Metric
	Error   string
}

// HasCharts reports whether a successful result is on display.
func (v View) HasCharts() bool { return v.Result != nil }

// Controller is one dashboard's state. It is safe for concurrent use; the
// analysis call runs outside the lock.
type Controller struct {
	mu sync.Mutex

	analyzer   Analyzer
	log        logger.Logger
	timePoints int
	timeEnd    float64

	nonce  string
	state  State
	input  Input
	seq    uint64
	cancel context.CancelFunc
	result *types.Result
	charts chartdata.Charts
	errMsg string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDefaults sets the simulation parameters used when the input leaves them empty.
func WithDefaults(timePoints int, timeEnd float64) Option {
	return func(c *Controller) {
		if timePoints > 0 {
			c.timePoints = timePoints
		}
		if timeEnd > 0 {
			c.timeEnd = timeEnd
		}
	}
}

// New creates an idle Controller backed by analyzer.
func New(analyzer Analyzer, opts ...Option) *Controller {
	c := &Controller{
		analyzer:   analyzer,
		nonce:      uuid.NewString(),
		log:        logger.Nop(),
		timePoints: defaultTimePoints,
		timeEnd:    defaultTimeEnd,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit runs one analysis for in. Empty coefficient fields are rejected
// without touching state. Malformed input moves to StateError without a
// request. Otherwise any in-flight request is canceled and the new one is
// issued; a response that arrives after a newer submission yields ErrSuperseded.
func (c *Controller) Submit(ctx context.Context, in Input) (View, error) {
	if strings.TrimSpace(in.Numerator) == "" || strings.TrimSpace(in.Denominator) == "" {
		metrics.RecordValidationError()
		return c.View(), types.NewValidationError("enter both a numerator and a denominator")
	}

	req, err := c.request(in)

	c.mu.Lock()
	c.input = in
	c.seq++
	seq := c.seq
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err != nil {
		c.state = StateError
		c.errMsg = types.Message(err)
		v := c.snapshot()
		c.mu.Unlock()
		metrics.RecordValidationError()
		metrics.RecordSubmission("validation")
		c.log.Debug(ctx, "submission rejected", logger.Error(err))
		return v, err
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateLoading
	c.errMsg = ""
	c.mu.Unlock()

	c.log.Debug(ctx, "submitting",
		logger.Int("seq", int(seq)),
		logger.Any("numerator", req.Numerator),
		logger.Any("denominator", req.Denominator))
	res, err := c.analyzer.Analyze(reqCtx, req)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		metrics.RecordSubmissionSuperseded()
		c.log.Debug(ctx, "discarding superseded response", logger.Int("seq", int(seq)))
		return c.snapshot(), ErrSuperseded
	}
	c.cancel = nil

	switch {
	case err == nil:
		c.result = &res
		c.charts = chartdata.Build(res)
		c.state = StateSuccess
		metrics.RecordSubmission("success")
		return c.snapshot(), nil
	case errors.Is(err, context.Canceled):
		c.state = c.resting()
		metrics.RecordSubmission("canceled")
		return c.snapshot(), err
	default:
		c.state = StateError
		c.errMsg = types.Message(err)
		metrics.RecordSubmission(outcome(err))
		c.log.Info(ctx, "analysis failed", logger.String("message", c.errMsg), logger.Error(err))
		return c.snapshot(), err
	}
}

// LoadFromQuery pre-populates the input from URL parameters. When both
// numerator and denominator are present it submits exactly once and reports
// submitted=true.
func (c *Controller) LoadFromQuery(ctx context.Context, q url.Values) (v View, submitted bool, err error) {
	in := Input{
		Numerator:   q.Get(ParamNumerator),
		Denominator: q.Get(ParamDenominator),
		TimePoints:  q.Get(ParamTimePoints),
		TimeEnd:     q.Get(ParamTimeEnd),
	}
	if in.Numerator == "" || in.Denominator == "" {
		if in.Numerator != "" || in.Denominator != "" {
			c.mu.Lock()
			c.input = in
			c.mu.Unlock()
		}
		return c.View(), false, nil
	}
	v, err = c.Submit(ctx, in)
	return v, true, err
}

// Dismiss clears the error message.
func (c *Controller) Dismiss() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateError {
		c.errMsg = ""
		c.state = c.resting()
	}
	return c.snapshot()
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Close cancels any in-flight request.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// snapshot must be called with c.mu held. Charts and results are replaced,
// never mutated, so sharing them is safe.
func (c *Controller) snapshot() View {
	v := View{
		State:   c.state,
		Nonce:   c.nonce,
		Seq:     c.seq,
		Input:   c.input,
		Formula: coeff.FormatTransferFunction(c.input.Numerator, c.input.Denominator),
		Result:  c.result,
		Charts:  c.charts,
		Error:   c.errMsg,
	}
	if c.result != nil {
		v.Metrics = c.result.StepInfo.Metrics(c.result.Version)
	}
	return v
}

func (c *Controller) resting() State {
	if c.result != nil {
		return StateSuccess
	}
	return StateIdle
}

func (c *Controller) request(in Input) (types.TransferFunctionRequest, error) {
	num, den, err := coeff.ParsePair(in.Numerator, in.Denominator)
	if err != nil {
		return types.TransferFunctionRequest{}, err
	}
	req := types.TransferFunctionRequest{
		Numerator:   num,
		Denominator: den,
		TimePoints:  c.timePoints,
		TimeEnd:     c.timeEnd,
	}
	if s := strings.TrimSpace(in.TimePoints); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, types.NewValidationError("time points must be a whole number")
		}
		req.TimePoints = n
	}
	if s := strings.TrimSpace(in.TimeEnd); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, types.NewValidationError("simulation time must be a number")
		}
		req.TimeEnd = f
	}
	return req, req.Validate()
}

func outcome(err error) string {
	switch {
	case errors.Is(err, types.ErrValidation):
		return "validation"
	case errors.Is(err, types.ErrDomain):
		return "domain"
	default:
		return "transport"
	}
}
