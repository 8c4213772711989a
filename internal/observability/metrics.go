package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and bulk flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	bulkItemsTotal      *prometheus.CounterVec
	bulkRunsTotal       *prometheus.CounterVec
	bulkRunDuration     *prometheus.HistogramVec
	bulkRunInflight     prometheus.Gauge
	pollFetchesTotal    *prometheus.CounterVec
	operationsStarted   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "admin_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "admin_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		bulkItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "admin_engine",
				Name:      "bulk_items_total",
				Help:      "Total number of bulk run items processed by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		bulkRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "admin_engine",
				Name:      "bulk_runs_total",
				Help:      "Total number of completed bulk runs by summary classification.",
			},
			[]string{"summary"},
		),
		bulkRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "admin_engine",
				Name:      "bulk_run_duration_seconds",
				Help:      "Bulk run duration in seconds grouped by action.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"action"},
		),
		bulkRunInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "admin_engine",
				Name:      "bulk_run_inflight",
				Help:      "Whether a bulk run is currently executing (0 or 1).",
			},
		),
		pollFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "admin_engine",
				Name:      "operation_poll_fetches_total",
				Help:      "Total number of operation status fetches by observed status.",
			},
			[]string{"status"},
		),
		operationsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "admin_engine",
				Name:      "operations_started_total",
				Help:      "Total number of async operations submitted to the core service by type.",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.bulkItemsTotal,
		m.bulkRunsTotal,
		m.bulkRunDuration,
		m.bulkRunInflight,
		m.pollFetchesTotal,
		m.operationsStarted,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncBulkItem(action string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.bulkItemsTotal.WithLabelValues(normalizeLabel(action), outcome).Inc()
}

func (m *Metrics) IncBulkRun(summary string) {
	if m == nil {
		return
	}
	m.bulkRunsTotal.WithLabelValues(normalizeLabel(summary)).Inc()
}

func (m *Metrics) ObserveBulkRunDuration(action string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.bulkRunDuration.WithLabelValues(normalizeLabel(action)).Observe(seconds)
}

func (m *Metrics) SetBulkRunInflight(executing bool) {
	if m == nil {
		return
	}
	if executing {
		m.bulkRunInflight.Set(1)
		return
	}
	m.bulkRunInflight.Set(0)
}

func (m *Metrics) IncPollFetch(status string) {
	if m == nil {
		return
	}
	m.pollFetchesTotal.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) IncOperationStarted(operationType string) {
	if m == nil {
		return
	}
	m.operationsStarted.WithLabelValues(normalizeLabel(operationType)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
