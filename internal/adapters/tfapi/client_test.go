package tfapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/malcong/controle/internal/adapters/tfapi"
	"github.com/malcong/controle/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const v2Body = `{
  "success": true,
  "message": "Transfer function analyzed successfully",
  "step_response": {"data": [{"x":0,"y":0},{"x":1,"y":0.9},{"x":2,"y":1}], "label": "Step Response",
    "metadata": {"length": 3, "time_range": [0, 2], "amplitude_range": [0, 1], "final_value": 1}},
  "impulse_response": {"data": [{"x":0,"y":0},{"x":1,"y":2},{"x":2,"y":0.1}], "label": "Impulse Response",
    "metadata": {"length": 3}},
  "ramp_response": {"data": [{"x":0,"y":0},{"x":1,"y":0.6},{"x":2,"y":1.5}], "label": "Ramp Response",
    "metadata": {"length": 3}},
  "step_info": {"RiseTime": 0.42, "RiseTime_0_to_100": 0.7, "SettlingTime": 1.5, "SettlingTime5": 1.1,
    "SettlingMin": 0.9, "SettlingMax": 1.02, "Overshoot": 2.5, "Undershoot": 0, "Peak": 1.02,
    "PeakTime": 0.9, "SteadyStateValue": 1}
}`

const v1Body = `{
  "success": true,
  "message": "ok",
  "step_response": {"data": [{"x":0,"y":0},{"x":1,"y":1}], "label": "", "metadata": {}},
  "impulse_response": {"data": [{"x":0,"y":1},{"x":1,"y":0}], "label": "Impulse Response", "metadata": {"length": 0}},
  "step_info": {"RiseTime": null, "SettlingTime": 0.8, "SettlingTime5": 0.5}
}`

func validRequest() types.TransferFunctionRequest {
	return types.TransferFunctionRequest{
		Numerator:   types.CoefficientList{16},
		Denominator: types.CoefficientList{1, 5.6, 16},
		TimePoints:  40,
		TimeEnd:     3,
	}
}

type seenRequest struct {
	method, path string
	header       http.Header
	numeratorLen int
}

// captured is what the fake backend saw of the last request.
type captured struct {
	mu   sync.Mutex
	last seenRequest
}

func (c *captured) get() seenRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func backend(status int, body string, calls *int32, seen *captured) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if seen != nil {
			var req types.TransferFunctionRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			seen.mu.Lock()
			seen.last = seenRequest{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), numeratorLen: len(req.Numerator)}
			seen.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestAnalyzeSuccess(t *testing.T) {
	Convey("Given a backend returning a v2 body", t, func() {
		seen := &captured{}
		srv := backend(http.StatusOK, v2Body, nil, seen)
		defer srv.Close()
		c := tfapi.New(srv.URL + "/")

		Convey("When analyzing a valid request", func() {
			res, err := c.Analyze(context.Background(), validRequest())

			Convey("Then the result is a v2 result with all three series", func() {
				So(err, ShouldBeNil)
				So(res.Version, ShouldEqual, types.SchemaV2)
				So(res.HasRamp(), ShouldBeTrue)
				So(len(res.Step.Points), ShouldEqual, 3)
				So(res.Step.Metadata.FinalValue, ShouldEqual, 1)
				So(res.Impulse.Metadata.AmplitudeRange, ShouldResemble, [2]float64{0, 2})
				So(*res.StepInfo.SettlingTime5, ShouldEqual, 1.1)
			})

			Convey("And the request carried the expected path and headers", func() {
				got := seen.get()
				So(got.method, ShouldEqual, http.MethodPost)
				So(got.path, ShouldEqual, "/api/transfer-function")
				So(got.header.Get("Content-Type"), ShouldEqual, "application/json")
				So(got.header.Get("Accept"), ShouldEqual, "application/json")
				So(got.header.Get(tfapi.HeaderRequestID), ShouldNotBeEmpty)
				So(got.numeratorLen, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a backend returning a v1 body", t, func() {
		srv := backend(http.StatusOK, v1Body, nil, nil)
		defer srv.Close()

		res, err := tfapi.New(srv.URL).Analyze(context.Background(), validRequest())

		Convey("Then it is tagged v1 with metadata recomputed and v2-only metrics dropped", func() {
			So(err, ShouldBeNil)
			So(res.Version, ShouldEqual, types.SchemaV1)
			So(res.Ramp, ShouldBeNil)
			So(res.Step.Label, ShouldEqual, "Step Response")
			So(res.Step.Metadata.Length, ShouldEqual, 2)
			So(res.Impulse.Metadata.FinalValue, ShouldEqual, 0)
			So(res.StepInfo.RiseTime, ShouldBeNil)
			So(res.StepInfo.SettlingTime5, ShouldBeNil)
			So(*res.StepInfo.SettlingTime, ShouldEqual, 0.8)
		})
	})
}

func TestAnalyzeFailures(t *testing.T) {
	Convey("Given a backend that fails with a detail message", t, func() {
		srv := backend(http.StatusInternalServerError, `{"detail":"invalid system"}`, nil, nil)
		defer srv.Close()

		_, err := tfapi.New(srv.URL).Analyze(context.Background(), validRequest())

		Convey("Then the error is a transport error carrying the detail", func() {
			So(errors.Is(err, types.ErrTransport), ShouldBeTrue)
			So(errors.Is(err, tfapi.ErrStatus), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "invalid system")
			var re *types.RequestError
			So(errors.As(err, &re), ShouldBeTrue)
			So(re.StatusCode, ShouldEqual, http.StatusInternalServerError)
		})
	})

	Convey("Given a backend that answers 422 with a validation array", t, func() {
		srv := backend(http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["body","numerator"],"msg":"field required"},{"msg":"value is not a valid float"}]}`, nil, nil)
		defer srv.Close()

		_, err := tfapi.New(srv.URL).Analyze(context.Background(), validRequest())

		Convey("Then the messages are joined", func() {
			So(errors.Is(err, types.ErrTransport), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "field required; value is not a valid float")
		})
	})

	Convey("Given a backend that fails without a body", t, func() {
		srv := backend(http.StatusBadGateway, ``, nil, nil)
		defer srv.Close()

		_, err := tfapi.New(srv.URL).Analyze(context.Background(), validRequest())

		Convey("Then the generic transport message is used", func() {
			So(err.Error(), ShouldEqual, types.GenericTransportMessage)
		})
	})

	Convey("Given a backend that reports success false", t, func() {
		srv := backend(http.StatusOK, `{"success":false,"message":"improper transfer function"}`, nil, nil)
		defer srv.Close()

		_, err := tfapi.New(srv.URL).Analyze(context.Background(), validRequest())

		Convey("Then the error is a domain error with the message", func() {
			So(errors.Is(err, types.ErrDomain), ShouldBeTrue)
			So(errors.Is(err, tfapi.ErrRejected), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "improper transfer function")
		})

		Convey("And detail takes precedence over message", func() {
			srv2 := backend(http.StatusOK, `{"success":false,"message":"m","detail":"d"}`, nil, nil)
			defer srv2.Close()
			_, err := tfapi.New(srv2.URL).Analyze(context.Background(), validRequest())
			So(err.Error(), ShouldEqual, "d")
		})
	})

	Convey("Given malformed success bodies", t, func() {
		bodies := []string{
			`not json`,
			`{"message":"no flag"}`,
			`{"success":true,"impulse_response":{"data":[{"x":0,"y":0}]}}`,
			`{"success":true,"step_response":{"data":[{"x":0,"y":0}],"metadata":{"length":5}},"impulse_response":{"data":[{"x":0,"y":0}]}}`,
			`{"success":true,"step_response":{"data":[]},"impulse_response":{"data":[{"x":0,"y":0}]}}`,
		}

		for _, body := range bodies {
			srv := backend(http.StatusOK, body, nil, nil)
			_, err := tfapi.New(srv.URL).Analyze(context.Background(), validRequest())
			srv.Close()

			So(errors.Is(err, types.ErrDomain), ShouldBeTrue)
			So(errors.Is(err, tfapi.ErrMalformedResponse), ShouldBeTrue)
			So(err.Error(), ShouldEqual, types.GenericDomainMessage)
		}
	})

	Convey("Given an unreachable backend", t, func() {
		srv := backend(http.StatusOK, v2Body, nil, nil)
		url := srv.URL
		srv.Close()

		_, err := tfapi.New(url).Analyze(context.Background(), validRequest())

		Convey("Then the error is a transport error with the generic message", func() {
			So(errors.Is(err, types.ErrTransport), ShouldBeTrue)
			So(err.Error(), ShouldEqual, types.GenericTransportMessage)
		})
	})
}

func TestAnalyzeValidation(t *testing.T) {
	Convey("Given invalid requests", t, func() {
		var calls int32
		srv := backend(http.StatusOK, v2Body, &calls, nil)
		defer srv.Close()
		c := tfapi.New(srv.URL)

		reqs := []types.TransferFunctionRequest{
			{Denominator: types.CoefficientList{1}, TimePoints: 40, TimeEnd: 3},
			{Numerator: types.CoefficientList{1}, TimePoints: 40, TimeEnd: 3},
			{Numerator: types.CoefficientList{1}, Denominator: types.CoefficientList{1}, TimePoints: 0, TimeEnd: 3},
			{Numerator: types.CoefficientList{1}, Denominator: types.CoefficientList{1}, TimePoints: 40, TimeEnd: 6},
		}

		Convey("Then each fails validation without any request", func() {
			for _, r := range reqs {
				_, err := c.Analyze(context.Background(), r)
				So(errors.Is(err, types.ErrValidation), ShouldBeTrue)
			}
			So(atomic.LoadInt32(&calls), ShouldEqual, int32(0))
		})
	})
}

func TestAnalyzeCancellation(t *testing.T) {
	Convey("Given a slow backend", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		Convey("When the caller cancels", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
			_, err := tfapi.New(srv.URL).Analyze(ctx, validRequest())

			Convey("Then the error wraps context.Canceled", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(errors.Is(err, types.ErrTransport), ShouldBeTrue)
			})
		})

		Convey("When the client timeout elapses", func() {
			_, err := tfapi.New(srv.URL, tfapi.WithTimeout(20*time.Millisecond)).Analyze(context.Background(), validRequest())

			Convey("Then the error is a deadline transport error", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(err.Error(), ShouldEqual, types.GenericTransportMessage)
			})
		})
	})
}

func TestExample(t *testing.T) {
	Convey("Given a backend serving the example", t, func() {
		seen := &captured{}
		srv := backend(http.StatusOK, v2Body, nil, seen)
		defer srv.Close()

		res, err := tfapi.New(srv.URL).Example(context.Background())

		Convey("Then it issues a GET and decodes the result", func() {
			So(err, ShouldBeNil)
			got := seen.get()
			So(got.method, ShouldEqual, http.MethodGet)
			So(got.path, ShouldEqual, "/api/example")
			So(res.Version, ShouldEqual, types.SchemaV2)
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a client limited to one call with no refill", t, func() {
		var calls int32
		srv := backend(http.StatusOK, v2Body, &calls, nil)
		defer srv.Close()
		c := tfapi.New(srv.URL, tfapi.WithRateLimit(0.001, 1), tfapi.WithTimeout(50*time.Millisecond))

		_, first := c.Analyze(context.Background(), validRequest())
		_, second := c.Analyze(context.Background(), validRequest())

		Convey("Then the second call fails before reaching the backend", func() {
			So(first, ShouldBeNil)
			So(errors.Is(second, types.ErrTransport), ShouldBeTrue)
			So(atomic.LoadInt32(&calls), ShouldEqual, int32(1))
		})
	})
}
