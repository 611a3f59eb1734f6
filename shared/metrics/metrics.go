package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "food_ordering"

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// ImportRowsTotal counts imported and rejected rows per kind
	ImportRowsTotal *prometheus.CounterVec
	// ImportFilesTotal counts import files per kind and outcome (ok, malformed)
	ImportFilesTotal *prometheus.CounterVec

	AuthAttemptsTotal *prometheus.CounterVec
	AccessDeniedTotal *prometheus.CounterVec

	initOnce sync.Once
)

// Init registers the collectors on the default registry. Safe to call from
// every router constructor.
func Init() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "path"},
		)

		ImportRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_import_rows_total",
				Help: "Rows processed by bulk imports",
			},
			[]string{"kind", "outcome"},
		)

		ImportFilesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_import_files_total",
				Help: "Files submitted to bulk imports",
			},
			[]string{"kind", "outcome"},
		)

		AuthAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_auth_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		)

		AccessDeniedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_access_denied_total",
				Help: "Requests refused by the tenant guard",
			},
			[]string{"reason"},
		)
	})
}

// Middleware records request count and latency for service
func Middleware(service string) gin.HandlerFunc {
	Init()
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(service, method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(service, method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordImport counts a finished import
func RecordImport(kind string, imported, rejected int) {
	Init()
	ImportFilesTotal.WithLabelValues(kind, "ok").Inc()
	ImportRowsTotal.WithLabelValues(kind, "imported").Add(float64(imported))
	ImportRowsTotal.WithLabelValues(kind, "rejected").Add(float64(rejected))
}

// RecordMalformedImport counts a file refused before any row was read
func RecordMalformedImport(kind string) {
	Init()
	ImportFilesTotal.WithLabelValues(kind, "malformed").Inc()
}

func RecordAuthAttempt(result string) {
	Init()
	AuthAttemptsTotal.WithLabelValues(result).Inc()
}

func RecordAccessDenied(reason string) {
	Init()
	AccessDeniedTotal.WithLabelValues(reason).Inc()
}
