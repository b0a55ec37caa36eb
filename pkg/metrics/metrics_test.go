package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the controle namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "controle")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithUpstreamBuckets([]float64{1, 10, 100}),
				WithRenderBuckets([]float64{0.1, 0.5, 1.0}),
				WithUpstreamRecording(true),
				WithRefreshInterval(5*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.submissions.WithLabelValues("success").Inc()

			Convey("Then the options are reflected in exported names", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_prefix_submissions_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithUpstreamBuckets([]float64{100, 10}),
				WithRenderBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "controle")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
				So(manager.upstreamBuckets, ShouldResemble, defaultUpstreamBuckets)
				So(manager.renderBuckets, ShouldResemble, defaultRenderBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording submissions", func() {
			before := testutil.ToFloat64(globalManager.submissions.WithLabelValues("success"))
			RecordSubmission("success")
			RecordSubmission("success")

			Convey("Then the counter advances", func() {
				So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("success")), ShouldEqual, before+2)
			})
		})

		Convey("When recording superseded and rejected submissions", func() {
			superseded := testutil.ToFloat64(globalManager.submissionsSuperseded)
			rejected := testutil.ToFloat64(globalManager.validationErrors)
			RecordSubmissionSuperseded()
			RecordValidationError()

			So(testutil.ToFloat64(globalManager.submissionsSuperseded), ShouldEqual, superseded+1)
			So(testutil.ToFloat64(globalManager.validationErrors), ShouldEqual, rejected+1)
		})

		Convey("When recording upstream calls", func() {
			before := testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("transfer-function", "transport"))
			RecordUpstreamRequest("transfer-function", "transport", 12.5)

			So(testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("transfer-function", "transport")), ShouldEqual, before+1)
		})

		Convey("When updating session gauges", func() {
			UpdateSessionsActive(7)
			evicted := testutil.ToFloat64(globalManager.sessionsEvicted)
			RecordSessionEvicted()

			So(testutil.ToFloat64(globalManager.sessionsActive), ShouldEqual, 7)
			So(testutil.ToFloat64(globalManager.sessionsEvicted), ShouldEqual, evicted+1)
		})

		Convey("When recording chart renders", func() {
			before := testutil.ToFloat64(globalManager.chartsRendered.WithLabelValues("step"))
			RecordChartRendered("step", 3)
			RecordChartRenderError("ramp")

			So(testutil.ToFloat64(globalManager.chartsRendered.WithLabelValues("step")), ShouldEqual, before+1)
			So(testutil.ToFloat64(globalManager.chartRenderErrors.WithLabelValues("ramp")), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("/api/analyze", "POST", "200")
				RecordHTTPRequestDuration("/api/analyze", "POST", "200", 15.0)
				RecordErrorByComponent("tfapi", "transport")
				RecordErrorByType("domain", "warning")
				RecordErrorByEndpoint("/api/analyze", "POST", "validation")
			}, ShouldNotPanic)
		})

		Convey("When updating system metrics", func() {
			UpdateSystemMemoryUsage(2048)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.4)

			So(testutil.ToFloat64(globalManager.systemMemoryUsage), ShouldEqual, 2048)
			So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 12)
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordSubmission("validation")

		Convey("Then it exposes controle metrics and no default Go collectors", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			var names []string
			for _, f := range families {
				names = append(names, f.GetName())
			}
			joined := strings.Join(names, ",")
			So(joined, ShouldContainSubstring, "controle_dashboard_submissions_total")
			So(joined, ShouldNotContainSubstring, "go_goroutines")
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager is reconfigured", t, func() {
		Configure(
			WithMetricPrefix("edge"),
			WithConstLabels(map[string]string{"env": "test"}),
			WithUpstreamRecording(false),
		)
		defer Configure()

		RecordSubmission("success")
		RecordUpstreamRequest("transfer-function", "success", 10)

		Convey("Then the served registry carries the new names and labels", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
				if f.GetName() == "controle_dashboard_edge_submissions_total" {
					So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
				}
			}
			So(names["controle_dashboard_edge_submissions_total"], ShouldBeTrue)
			So(names["controle_dashboard_submissions_total"], ShouldBeFalse)
			So(names["controle_dashboard_edge_upstream_requests_total"], ShouldBeFalse)
		})
	})
}
