package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsBulkCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncBulkItem("PUBLISH", true)
	metrics.IncBulkItem("publish", false)
	metrics.IncBulkRun("MIXED")
	metrics.ObserveBulkRunDuration("publish", 120*time.Millisecond)
	metrics.SetBulkRunInflight(true)
	metrics.SetBulkRunInflight(false)
	metrics.IncPollFetch("PENDING")
	metrics.IncOperationStarted("duplicate")

	if got := testutil.ToFloat64(metrics.bulkItemsTotal.WithLabelValues("publish", "success")); got != 1 {
		t.Fatalf("bulk_items_total{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.bulkItemsTotal.WithLabelValues("publish", "failure")); got != 1 {
		t.Fatalf("bulk_items_total{failure} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.bulkRunsTotal.WithLabelValues("mixed")); got != 1 {
		t.Fatalf("bulk_runs_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.bulkRunInflight); got != 0 {
		t.Fatalf("bulk_run_inflight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.pollFetchesTotal.WithLabelValues("pending")); got != 1 {
		t.Fatalf("operation_poll_fetches_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.operationsStarted.WithLabelValues("duplicate")); got != 1 {
		t.Fatalf("operations_started_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
