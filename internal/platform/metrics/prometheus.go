package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Risk engine metrics
	labTestsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maternal_lab_tests_scored_total",
			Help: "Total number of maternal lab tests scored, by risk level",
		},
		[]string{"risk_level"},
	)

	alertsRaised = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maternal_lab_alerts_raised_total",
			Help: "Total number of critical-value alerts raised",
		},
	)

	alertPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maternal_lab_alert_publish_failures_total",
			Help: "Total number of alert events that could not be published",
		},
	)

	profileRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "maternal_lab_profile_rebuild_duration_seconds",
			Help:    "Time spent rebuilding a patient risk profile, including lock wait",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)

// Handler serves the Prometheus scrape endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Middleware records request counts and latency per route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// --- Risk engine helpers ---

func RecordTestScored(riskLevel string) {
	labTestsScored.WithLabelValues(riskLevel).Inc()
}

func RecordAlertRaised() {
	alertsRaised.Inc()
}

func RecordAlertPublishFailure() {
	alertPublishFailures.Inc()
}

func ObserveProfileRebuild(d time.Duration) {
	profileRebuildDuration.Observe(d.Seconds())
}
