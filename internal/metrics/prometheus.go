package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for analysesTotal.
const (
	OutcomeSuccess     = "success"
	OutcomeUnsupported = "unsupported"
	OutcomeFailure     = "failure"
	OutcomeTimeout     = "timeout"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Analysis metrics
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyses_total",
			Help: "Total number of document analyses by file type and outcome",
		},
		[]string{"file_type", "outcome"},
	)

	analysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"file_type"},
	)

	medicationsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medications_extracted_total",
			Help: "Total number of medications parsed from documents",
		},
	)

	// Database metrics
	analysisPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_persist_failures_total",
			Help: "Total number of analysis records that could not be stored",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// --- Analysis metric helpers ---

// RecordAnalysis records one finished analysis. medications is ignored unless
// the outcome is a success.
func RecordAnalysis(fileType, outcome string, duration time.Duration, medications int) {
	if fileType == "" {
		fileType = "unknown"
	}
	analysesTotal.WithLabelValues(fileType, outcome).Inc()
	analysisDuration.WithLabelValues(fileType).Observe(duration.Seconds())
	if outcome == OutcomeSuccess && medications > 0 {
		medicationsExtracted.Add(float64(medications))
	}
}

// RecordPersistFailure records an analysis record that failed to save.
func RecordPersistFailure() {
	analysisPersistFailures.Inc()
}
