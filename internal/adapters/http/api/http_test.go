package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/malcong/controle/internal/adapters/http/api"
	"github.com/malcong/controle/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockAnalyzer records requests and answers with a fixed result or error.
type mockAnalyzer struct {
	res   types.Result
	err   error
	calls []types.TransferFunctionRequest
}

func (m *mockAnalyzer) Analyze(_ context.Context, req types.TransferFunctionRequest) (types.Result, error) {
	m.calls = append(m.calls, req)
	return m.res, m.err
}

func (m *mockAnalyzer) Example(context.Context) (types.Result, error) {
	return m.res, m.err
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any { return map[string]any{"sessions": 3} }

func f(v float64) *float64 { return &v }

func v2Result() types.Result {
	pts := []types.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}
	return types.Result{
		Version:  types.SchemaV2,
		Step:     types.ResponseSeries{Label: "Step Response", Points: pts},
		Impulse:  types.ResponseSeries{Label: "Impulse Response", Points: pts},
		Ramp:     &types.ResponseSeries{Label: "Ramp Response", Points: pts},
		StepInfo: types.StepInfo{Overshoot: f(12.346)},
		Message:  "Transfer function analyzed successfully",
	}
}

func newMux(a api.Analyzer) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(a, mockStats{}, api.WithDefaults(40, 3)).Register(context.Background(), mux)
	return mux
}

func post(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestAnalyze(t *testing.T) {
	Convey("Given the API with a healthy analyzer", t, func() {
		mock := &mockAnalyzer{res: v2Result()}
		mux := newMux(mock)

		Convey("When posting a valid system", func() {
			w := post(mux, "/api/analyze", `{"numerator":"16","denominator":"1, 5.6, 16"}`)

			Convey("Then the charts, formula and metrics are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["schema_version"], ShouldEqual, "v2")
				So(body["formula"], ShouldEqual, "G(s) = (16) / (s^2 + 5.6s + 16)")
				charts := body["charts"].(map[string]any)
				ramp := charts["ramp"].(map[string]any)
				So(len(ramp["datasets"].([]any)), ShouldEqual, 2)
				So(w.Body.String(), ShouldContainSubstring, `"display":"12.35 %"`)
				So(w.Body.String(), ShouldContainSubstring, `"display":"N/A"`)
			})

			Convey("And the defaults were applied", func() {
				So(len(mock.calls), ShouldEqual, 1)
				So(mock.calls[0].TimePoints, ShouldEqual, 40)
				So(mock.calls[0].TimeEnd, ShouldEqual, 3.0)
			})
		})

		Convey("When posting explicit time parameters", func() {
			w := post(mux, "/api/analyze", `{"numerator":"1","denominator":"1,1","time_points":100,"time_end":5}`)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(mock.calls[0].TimePoints, ShouldEqual, 100)
			So(mock.calls[0].TimeEnd, ShouldEqual, 5.0)
		})

		Convey("When posting malformed coefficients", func() {
			w := post(mux, "/api/analyze", `{"numerator":"1,abc","denominator":"1"}`)

			Convey("Then a 400 validation error is returned without an upstream call", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"validation"`)
				So(w.Body.String(), ShouldContainSubstring, `abc`)
				So(len(mock.calls), ShouldEqual, 0)
			})
		})

		Convey("When posting invalid JSON", func() {
			w := post(mux, "/api/analyze", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
		})

		Convey("When using the wrong method", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analyze", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given analyzers that fail", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{&types.RequestError{Kind: types.ErrTransport, Message: "invalid system"}, http.StatusBadGateway, "upstream_unavailable"},
			{&types.RequestError{Kind: types.ErrDomain, Message: "improper"}, http.StatusUnprocessableEntity, "analysis_rejected"},
		}

		for _, tc := range cases {
			w := post(newMux(&mockAnalyzer{err: tc.err}), "/api/analyze", `{"numerator":"1","denominator":"1,1"}`)

			var body struct{ Code, Message string }
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(w.Code, ShouldEqual, tc.status)
			So(body.Code, ShouldEqual, tc.code)
			So(body.Message, ShouldEqual, tc.err.Error())
		}
	})
}

func TestExampleAndFormat(t *testing.T) {
	Convey("Given the API", t, func() {
		mux := newMux(&mockAnalyzer{res: v2Result()})

		Convey("When fetching the example", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/example", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"schema_version":"v2"`)
		})

		Convey("When formatting partial input", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/format?numerator=1,0,-4&denominator=1,-", http.NoBody))

			var body map[string]string
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["numerator"], ShouldEqual, "s^2 - 4")
			So(body["denominator"], ShouldEqual, "s + -")
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the API", t, func() {
		mux := newMux(&mockAnalyzer{})

		Convey("Then /healthz answers JSON by default", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("And /healthz answers metrics when asked for text", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set("Accept", "text/plain")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Body.String(), ShouldContainSubstring, "controle_dashboard_")
		})

		Convey("And every JSON response carries a request id", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			So(w.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set(api.HeaderRequestID, "trace-42")
			w = httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "trace-42")
		})

		Convey("And /api/stats exposes the provider", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody))
			So(w.Body.String(), ShouldContainSubstring, `"sessions":3`)
		})

		Convey("And /ops serves the operations page", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "controle_dashboard_")
		})
	})
}

func TestKindError(t *testing.T) {
	Convey("Given a wrapped error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		So(api.NewKind("api.op", api.ErrUpstream).Error(), ShouldEqual, "api.op: analysis upstream failed")
	})
}
