package metrics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"enma/internal/config"
)

const namespace = "enma"

// Recorder owns a private Prometheus registry and optionally mirrors every
// sample into a Sink. Every Record call is a no-op when metrics are disabled.
type Recorder struct {
	cfg      *config.MetricsConfig
	logger   *slog.Logger
	registry *prometheus.Registry
	sink     *Sink

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	upstreamQueries  *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	goroutines       prometheus.Gauge
	heapAllocMB      prometheus.Gauge
	liveConnections  prometheus.Gauge
}

type Option func(*Recorder)

func WithSink(sink *Sink) Option {
	return func(r *Recorder) {
		r.sink = sink
	}
}

func NewRecorder(cfg *config.MetricsConfig, logger *slog.Logger, opts ...Option) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	r := &Recorder{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests that reached the route handlers.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path", "status"}),
		upstreamQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_queries_total",
			Help:      "Queries sent to New Relic by metric and outcome.",
		}, []string{"metric", "outcome"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_query_duration_seconds",
			Help:      "Latency of New Relic queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Number of goroutines.",
		}),
		heapAllocMB: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_alloc_megabytes",
			Help:      "Allocated heap in megabytes.",
		}),
		liveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Open client connections.",
		}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Enabled() bool {
	return r.cfg.Enabled
}

func (r *Recorder) RecordHTTP(m HTTPMetric) {
	if !r.cfg.Enabled {
		return
	}
	status := strconv.Itoa(m.StatusCode)
	r.httpRequests.WithLabelValues(m.Method, m.Path, status).Inc()
	r.httpDuration.WithLabelValues(m.Method, m.Path, status).Observe(m.Duration.Seconds())
	if r.sink != nil {
		r.sink.RecordHTTP(m)
	}
}

func (r *Recorder) RecordUpstream(m UpstreamMetric) {
	if !r.cfg.Enabled {
		return
	}
	r.upstreamQueries.WithLabelValues(m.Metric, m.Outcome).Inc()
	r.upstreamDuration.WithLabelValues(m.Metric).Observe(m.Duration.Seconds())
	if r.sink != nil {
		r.sink.RecordUpstream(m)
	}
}

func (r *Recorder) RecordInfra(m InfraMetric) {
	if !r.cfg.Enabled {
		return
	}
	r.goroutines.Set(float64(m.Goroutines))
	r.heapAllocMB.Set(m.HeapAllocMB)
	r.liveConnections.Set(float64(m.LiveConnections))
	if r.sink != nil {
		r.sink.RecordInfra(m)
	}
}

// Handler renders the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(r.logger.Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	})
}
