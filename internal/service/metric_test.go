package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"enma/internal/apperr"
	"enma/internal/domain"
	"enma/internal/metric"
	"enma/internal/metrics"
	"enma/internal/service"
	"enma/internal/service/mocks"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	testReq    = domain.MetricRequestData{
		ApplicationName: "checkout",
		StartTime:       "1650000000",
		EndTime:         "1650003600",
	}
)

func expectOutcome(t *testing.T, recorder *mocks.MockUpstreamRecorder, kind metric.Kind, outcome string) {
	t.Helper()
	recorder.EXPECT().RecordUpstream(mock.MatchedBy(func(m metrics.UpstreamMetric) bool {
		return m.Metric == kind.String() && m.Outcome == outcome && m.Duration >= 0
	})).Return().Once()
}

func TestGetMetric_Success(t *testing.T) {
	querier := mocks.NewMockQuerier(t)
	querier.EXPECT().Query(mock.Anything, metric.CPUUsedCore, "checkout", "1650000000", "1650003600").
		Return(0.42, nil).Once()

	recorder := mocks.NewMockUpstreamRecorder(t)
	expectOutcome(t, recorder, metric.CPUUsedCore, service.OutcomeOK)

	svc := service.NewMetricService(querier, recorder, testLogger)

	value, err := svc.GetMetric(context.Background(), metric.CPUUsedCore, testReq)
	require.NoError(t, err)
	assert.InDelta(t, 0.42, value, 1e-9)
}

func TestGetMetric_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
		status  int
	}{
		{
			name:    "null metric",
			err:     apperr.ErrNullMetric,
			outcome: service.OutcomeNull,
			status:  404,
		},
		{
			name:    "upstream error",
			err:     &apperr.UpstreamError{Message: "NRQL syntax error"},
			outcome: service.OutcomeUpstreamError,
			status:  502,
		},
		{
			name:    "transport error",
			err:     &apperr.TransportError{Op: apperr.OpSend, Err: errors.New("connection refused")},
			outcome: service.OutcomeTransportError,
			status:  502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := mocks.NewMockQuerier(t)
			querier.EXPECT().Query(mock.Anything, metric.Throughput, mock.Anything, mock.Anything, mock.Anything).
				Return(0, tt.err).Once()

			recorder := mocks.NewMockUpstreamRecorder(t)
			expectOutcome(t, recorder, metric.Throughput, tt.outcome)

			svc := service.NewMetricService(querier, recorder, testLogger)

			_, err := svc.GetMetric(context.Background(), metric.Throughput, testReq)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.status, apperr.Status(err))
		})
	}
}

func TestGetMetric_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(apperr.ErrRequestTimeout)

	querier := mocks.NewMockQuerier(t)
	querier.EXPECT().Query(mock.Anything, metric.TotalPods, mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _ metric.Kind, _, _, _ string) (float64, error) {
			return 0, &apperr.TransportError{Op: apperr.OpSend, Err: ctx.Err()}
		}).Once()

	recorder := mocks.NewMockUpstreamRecorder(t)
	expectOutcome(t, recorder, metric.TotalPods, service.OutcomeCanceled)

	svc := service.NewMetricService(querier, recorder, testLogger)

	_, err := svc.GetMetric(ctx, metric.TotalPods, testReq)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetMetric_UnknownKind(t *testing.T) {
	querier := mocks.NewMockQuerier(t)
	recorder := mocks.NewMockUpstreamRecorder(t)

	svc := service.NewMetricService(querier, recorder, testLogger)

	_, err := svc.GetMetric(context.Background(), metric.Kind(0), testReq)
	require.ErrorIs(t, err, service.ErrUnknownMetric)
	assert.Equal(t, 500, apperr.Status(err))
}

func TestGetMetric_ErrorNamesMetric(t *testing.T) {
	querier := mocks.NewMockQuerier(t)
	querier.EXPECT().Query(mock.Anything, metric.ThreadCount, mock.Anything, mock.Anything, mock.Anything).
		Return(0, apperr.ErrNullMetric).Once()

	recorder := mocks.NewMockUpstreamRecorder(t)
	recorder.EXPECT().RecordUpstream(mock.Anything).Return().Once()

	svc := service.NewMetricService(querier, recorder, testLogger)

	_, err := svc.GetMetric(context.Background(), metric.ThreadCount, testReq)
	assert.EqualError(t, err, "thread_count: metric value is null")
}
