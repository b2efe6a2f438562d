package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/streamvault/streamvault/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// metricSeries walks the collector and returns the first sample matching all
// given labels, or nil when no series matches.
func metricSeries(c prometheus.Collector, labels prometheus.Labels) *dto.Metric {
	ch := make(chan prometheus.Metric, 50)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		match := true
		for k, want := range labels {
			found := false
			for _, lp := range dm.GetLabel() {
				if lp.GetName() == k && lp.GetValue() == want {
					found = true
					break
				}
			}
			if !found {
				match = false
				break
			}
		}
		if match {
			return &dm
		}
	}
	return nil
}

func requestCount(labels prometheus.Labels) float64 {
	if dm := metricSeries(telemetry.HTTPRequestsTotal, labels); dm != nil {
		return dm.GetCounter().GetValue()
	}
	return 0
}

func durationSamples(labels prometheus.Labels) uint64 {
	if dm := metricSeries(telemetry.HTTPRequestDuration, labels); dm != nil {
		return dm.GetHistogram().GetSampleCount()
	}
	return 0
}

// newMeteredRouter mounts MetricsMiddleware in front of the two route shapes
// that dominate this service's traffic.
func newMeteredRouter(status int) *gin.Engine {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/api/v1/content/:id/stream", func(c *gin.Context) { c.Status(status) })
	r.PUT("/api/v1/content/:id/progress", func(c *gin.Context) { c.Status(status) })
	return r
}

func TestMetricsMiddleware_CountsStreamRequests(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": "/api/v1/content/:id/stream", "status": "200"}
	before := requestCount(labels)

	r := newMeteredRouter(http.StatusOK)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/content/42/stream", nil))

	if after := requestCount(labels); after-before < 1 {
		t.Errorf("http_requests_total for the stream route not incremented: before=%.0f after=%.0f", before, after)
	}
}

func TestMetricsMiddleware_TimesProgressRequests(t *testing.T) {
	labels := prometheus.Labels{"method": "PUT", "path": "/api/v1/content/:id/progress"}
	before := durationSamples(labels)

	r := newMeteredRouter(http.StatusNoContent)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/content/42/progress", nil))

	if after := durationSamples(labels); after <= before {
		t.Errorf("http_request_duration_seconds sample count did not increase: before=%d after=%d", before, after)
	}
}

func TestMetricsMiddleware_LabelsUseRouteTemplate(t *testing.T) {
	// The path label must be the route template, never the concrete content
	// ID, or series cardinality grows with the catalog.
	r := newMeteredRouter(http.StatusOK)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/content/7b944b16/stream", nil))

	if dm := metricSeries(telemetry.HTTPRequestsTotal, prometheus.Labels{"path": "/api/v1/content/7b944b16/stream"}); dm != nil {
		t.Error("path label contains a concrete content ID; expected the route template")
	}
}

func TestMetricsMiddleware_UnmatchedRouteUsesSentinel(t *testing.T) {
	labels := prometheus.Labels{"path": "<no-route>"}
	before := requestCount(labels)

	r := gin.New()
	r.Use(MetricsMiddleware())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	if after := requestCount(labels); after-before < 1 {
		t.Error("unmatched request did not record the <no-route> sentinel")
	}
}

func TestMetricsMiddleware_RecordsDenialStatus(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": "/api/v1/content/:id/stream", "status": "403"}
	before := requestCount(labels)

	r := newMeteredRouter(http.StatusForbidden)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/content/42/stream", nil))

	if after := requestCount(labels); after-before < 1 {
		t.Errorf("http_requests_total for status=403 not incremented: before=%.0f after=%.0f", before, after)
	}
}
