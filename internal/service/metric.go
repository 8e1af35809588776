package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"enma/internal/apperr"
	"enma/internal/domain"
	"enma/internal/metric"
	"enma/internal/metrics"
)

const (
	OutcomeOK             = "ok"
	OutcomeNull           = "null"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeTransportError = "transport_error"
	OutcomeCanceled       = "canceled"
)

var ErrUnknownMetric = errors.New("unknown metric")

type MetricService struct {
	querier  Querier
	recorder UpstreamRecorder
	logger   *slog.Logger
}

func NewMetricService(querier Querier, recorder UpstreamRecorder, logger *slog.Logger) *MetricService {
	return &MetricService{
		querier:  querier,
		recorder: recorder,
		logger:   logger,
	}
}

// GetMetric asks the upstream provider for one value of kind over the
// requested window.
func (s *MetricService) GetMetric(ctx context.Context, kind metric.Kind, req domain.MetricRequestData) (float64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMetric, kind)
	}

	start := time.Now()
	value, err := s.querier.Query(ctx, kind, req.ApplicationName, req.StartTime, req.EndTime)
	elapsed := time.Since(start)

	outcome := outcomeOf(ctx, err)
	s.recorder.RecordUpstream(metrics.UpstreamMetric{
		Metric:   kind.String(),
		Outcome:  outcome,
		Duration: elapsed,
	})

	if err != nil {
		s.logFailure(kind, req.ApplicationName, outcome, err)
		return 0, fmt.Errorf("%s: %w", kind, err)
	}
	return value, nil
}

func (s *MetricService) logFailure(kind metric.Kind, app, outcome string, err error) {
	attrs := []any{
		slog.String("metric", kind.String()),
		slog.String("application", app),
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	}
	switch outcome {
	case OutcomeNull, OutcomeCanceled:
		s.logger.Debug("metric query finished without value", attrs...)
	case OutcomeUpstreamError:
		s.logger.Warn("upstream rejected metric query", attrs...)
	default:
		s.logger.Error("metric query failed", attrs...)
	}
}

func outcomeOf(ctx context.Context, err error) string {
	var upstreamErr *apperr.UpstreamError
	switch {
	case err == nil:
		return OutcomeOK
	case ctx.Err() != nil:
		return OutcomeCanceled
	case errors.Is(err, apperr.ErrNullMetric):
		return OutcomeNull
	case errors.As(err, &upstreamErr):
		return OutcomeUpstreamError
	default:
		return OutcomeTransportError
	}
}
