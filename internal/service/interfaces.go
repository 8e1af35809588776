package service

//go:generate go tool mockery

import (
	"context"

	"enma/internal/metric"
	"enma/internal/metrics"
)

type Querier interface {
	Query(ctx context.Context, kind metric.Kind, applicationName, startTime, endTime string) (float64, error)
}

type UpstreamRecorder interface {
	RecordUpstream(m metrics.UpstreamMetric)
}
