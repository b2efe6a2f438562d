// Package telemetry provides application-level observability for StreamVault.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<SVT_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Access decision counters by outcome and grant reason
//   - Stream URL issuance counters and signing failure counters by storage backend
//   - Playback progress save counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/content/:id/stream)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as content IDs.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening:
//
//	import _ "github.com/streamvault/streamvault/internal/telemetry"
//
// Or import it directly and use an exported var:
//
//	telemetry.AccessDecisionsTotal.WithLabelValues("granted", "purchased").Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/v1/content/:id/stream),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Access decision metrics — recorded by the access engine on every evaluation.
//
// AccessDecisionsTotal is a CounterVec with labels {outcome, reason}.  Outcome is
// "granted" or "denied"; reason is the grant layer that matched ("free",
// "purchased", "complimentary", "organization_member") or "no_grant" for denials.
//
// Example PromQL queries:
//   - Denial rate (%):  sum(rate(access_decisions_total{outcome="denied"}[5m])) / sum(rate(access_decisions_total[5m])) * 100
//   - Grants by layer:  sum by (reason) (rate(access_decisions_total{outcome="granted"}[1h]))
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Total number of content access decisions, by outcome and grant reason.",
	},
	[]string{"outcome", "reason"},
)

// Streaming metrics — recorded by the stream URL issuer.
//
// StreamURLsIssuedTotal is a CounterVec with labels {backend, kind} incremented
// whenever a signed streaming URL is successfully issued.  "backend" is the storage
// backend that signed the URL (s3, gcs, azure, local); "kind" is the media kind.
//
// SigningFailuresTotal is a CounterVec with label {backend} incremented whenever a
// storage backend fails to produce a signed URL for an otherwise valid request.
// An alert on rate(signing_failures_total[15m]) > 0 catches expired cloud
// credentials early.
var (
	StreamURLsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_urls_issued_total",
			Help: "Total number of signed streaming URLs issued, by storage backend and media kind.",
		},
		[]string{"backend", "kind"},
	)

	SigningFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signing_failures_total",
			Help: "Total number of storage backend URL signing failures, by backend.",
		},
		[]string{"backend"},
	)
)

// ProgressSavesTotal is a CounterVec with label {completed} ("true"/"false")
// incremented once per accepted playback progress save.  The completed label
// reflects the merged row, so the true series counts saves that left the row in
// the completed state.
//
// Example PromQL queries:
//   - Save rate:            rate(progress_saves_total[5m])
//   - Completion fraction:  sum(rate(progress_saves_total{completed="true"}[1h])) / sum(rate(progress_saves_total[1h]))
var ProgressSavesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "progress_saves_total",
		Help: "Total number of playback progress saves accepted, by resulting completed state.",
	},
	[]string{"completed"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
