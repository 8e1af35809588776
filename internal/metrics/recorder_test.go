package metrics_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enma/internal/config"
	"enma/internal/metrics"
)

func newRecorder(enabled bool) *metrics.Recorder {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return metrics.NewRecorder(&config.MetricsConfig{Enabled: enabled, Path: "/metrics"}, logger)
}

func scrape(t *testing.T, r *metrics.Recorder) string {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorder_RecordHTTP(t *testing.T) {
	r := newRecorder(true)

	r.RecordHTTP(metrics.HTTPMetric{
		Method:     http.MethodPost,
		Path:       "/v1/newrelic/throughput",
		StatusCode: http.StatusOK,
		Duration:   20 * time.Millisecond,
	})

	out := scrape(t, r)
	assert.Contains(t, out, `enma_http_requests_total{method="POST",path="/v1/newrelic/throughput",status="200"} 1`)
	assert.Contains(t, out, `enma_http_request_duration_seconds_count{method="POST",path="/v1/newrelic/throughput",status="200"} 1`)
}

func TestRecorder_RecordUpstream(t *testing.T) {
	r := newRecorder(true)

	r.RecordUpstream(metrics.UpstreamMetric{Metric: "throughput", Outcome: "ok", Duration: time.Millisecond})
	r.RecordUpstream(metrics.UpstreamMetric{Metric: "throughput", Outcome: "null_metric", Duration: time.Millisecond})
	r.RecordUpstream(metrics.UpstreamMetric{Metric: "throughput", Outcome: "ok", Duration: time.Millisecond})

	out := scrape(t, r)
	assert.Contains(t, out, `enma_upstream_queries_total{metric="throughput",outcome="ok"} 2`)
	assert.Contains(t, out, `enma_upstream_queries_total{metric="throughput",outcome="null_metric"} 1`)
}

func TestRecorder_RecordInfra(t *testing.T) {
	r := newRecorder(true)

	r.RecordInfra(metrics.InfraMetric{Goroutines: 12, HeapAllocMB: 3.5, LiveConnections: 4})

	out := scrape(t, r)
	assert.Contains(t, out, "enma_goroutines 12")
	assert.Contains(t, out, "enma_heap_alloc_megabytes 3.5")
	assert.Contains(t, out, "enma_live_connections 4")
}

func TestRecorder_DisabledRecordsNothing(t *testing.T) {
	r := newRecorder(false)
	assert.False(t, r.Enabled())

	r.RecordHTTP(metrics.HTTPMetric{Method: http.MethodGet, Path: "/health", StatusCode: http.StatusOK})
	r.RecordUpstream(metrics.UpstreamMetric{Metric: "throughput", Outcome: "ok"})

	out := scrape(t, r)
	assert.NotContains(t, out, "enma_http_requests_total{")
	assert.NotContains(t, out, "enma_upstream_queries_total{")
}
