// Package tfapi is the HTTP client for the transfer-function analysis API.
package tfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/malcong/controle/internal/domain/types"
	"github.com/malcong/controle/pkg/logger"
	"github.com/malcong/controle/pkg/metrics"
)

const (
	analyzePath = "/api/transfer-function"
	examplePath = "/api/example"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20

	// HeaderRequestID correlates a call with backend logs.
	HeaderRequestID = "X-Request-ID"
)

// Metric outcome labels.
const (
	outcomeSuccess    = "success"
	outcomeValidation = "validation"
	outcomeTransport  = "transport"
	outcomeDomain     = "domain"
	outcomeCanceled   = "canceled"
)

// Client calls the analysis backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpc = hc
		}
	}
}

// WithTimeout bounds each call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps outgoing calls at rps per second with the given burst.
// Callers wait for a token; a canceled wait fails like a canceled request.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		timeout: defaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Analyze validates req and submits it to POST /api/transfer-function.
// Errors are *types.RequestError of kind ErrValidation, ErrTransport or ErrDomain.
func (c *Client) Analyze(ctx context.Context, req types.TransferFunctionRequest) (types.Result, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordUpstreamRequest(analyzePath, outcomeValidation, 0)
		return types.Result{}, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return types.Result{}, &types.RequestError{Kind: types.ErrValidation, Message: "could not encode request", Err: err}
	}
	return c.call(ctx, http.MethodPost, analyzePath, body)
}

// Example fetches the backend's canned system from GET /api/example.
func (c *Client) Example(ctx context.Context) (types.Result, error) {
	return c.call(ctx, http.MethodGet, examplePath, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body []byte) (types.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	start := time.Now()
	res, err := c.roundTrip(ctx, method, path, requestID, body)
	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	metrics.RecordUpstreamRequest(path, outcome, float64(elapsed.Microseconds())/1000)

	fields := []logger.Field{
		logger.String("method", method),
		logger.String("path", path),
		logger.String("requestID", requestID),
		logger.String("outcome", outcome),
		logger.Duration("elapsed", elapsed),
	}
	switch outcome {
	case outcomeSuccess:
		c.log.Debug(ctx, "analysis call succeeded", append(fields, logger.String("schema", string(res.Version)))...)
	case outcomeCanceled:
		c.log.Debug(ctx, "analysis call canceled", fields...)
	default:
		metrics.RecordErrorByComponent("tfapi", outcome)
		c.log.Warn(ctx, "analysis call failed", append(fields, logger.Error(err))...)
	}
	return res, err
}

func (c *Client) roundTrip(ctx context.Context, method, path, requestID string, body []byte) (types.Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("%w: %w", ctxErr, err)
			}
			return types.Result{}, transportError(0, "", err)
		}
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return types.Result{}, transportError(0, "", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestID, requestID)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return types.Result{}, transportError(0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return types.Result{}, transportError(resp.StatusCode, "", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return types.Result{}, transportError(resp.StatusCode, eb.text(),
			fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode))
	}

	return decodeResult(resp.StatusCode, raw)
}

func transportError(status int, msg string, err error) *types.RequestError {
	if msg == "" {
		msg = types.GenericTransportMessage
	}
	return &types.RequestError{Kind: types.ErrTransport, StatusCode: status, Message: msg, Err: err}
}

func domainError(status int, msg string, err error) *types.RequestError {
	if msg == "" {
		msg = types.GenericDomainMessage
	}
	return &types.RequestError{Kind: types.ErrDomain, StatusCode: status, Message: msg, Err: err}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, context.Canceled):
		return outcomeCanceled
	case errors.Is(err, types.ErrValidation):
		return outcomeValidation
	case errors.Is(err, types.ErrDomain):
		return outcomeDomain
	default:
		return outcomeTransport
	}
}
