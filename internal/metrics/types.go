package metrics

import "time"

type HTTPMetric struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
}

// UpstreamMetric describes one query against the metrics provider.
type UpstreamMetric struct {
	Metric   string
	Outcome  string
	Duration time.Duration
}

type InfraMetric struct {
	Goroutines      int
	HeapAllocMB     float64
	LiveConnections int64
}
