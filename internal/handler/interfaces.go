package handler

//go:generate go tool mockery

import (
	"context"

	"enma/internal/domain"
	"enma/internal/metric"
)

type MetricService interface {
	GetMetric(ctx context.Context, kind metric.Kind, req domain.MetricRequestData) (float64, error)
}
