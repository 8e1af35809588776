package newrelic_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enma/internal/apperr"
	"enma/internal/config"
	"enma/internal/metric"
	"enma/internal/newrelic"
)

type scriptedQuerier struct {
	calls   int
	results []error
	value   float64
}

func (s *scriptedQuerier) Query(context.Context, metric.Kind, string, string, string) (float64, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return 0, s.results[i]
	}
	return s.value, nil
}

func retryConfig(attempts uint) config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

var (
	testLogger   = slog.New(slog.NewTextHandler(os.Stdout, nil))
	errTransient = &apperr.TransportError{Op: apperr.OpSend, Err: errors.New("connection reset")}
)

func TestRetrying_DisabledCallsOnce(t *testing.T) {
	q := &scriptedQuerier{results: []error{errTransient}}
	r := newrelic.NewRetrying(q, retryConfig(1), testLogger)

	_, err := r.Query(context.Background(), metric.Throughput, "app", "1", "2")
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, q.calls)
}

func TestRetrying_RetriesTransportErrors(t *testing.T) {
	q := &scriptedQuerier{results: []error{errTransient, errTransient}, value: 2.5}
	r := newrelic.NewRetrying(q, retryConfig(3), testLogger)

	v, err := r.Query(context.Background(), metric.Throughput, "app", "1", "2")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-9)
	assert.Equal(t, 3, q.calls)
}

func TestRetrying_GivesUpAfterMaxAttempts(t *testing.T) {
	q := &scriptedQuerier{results: []error{errTransient, errTransient, errTransient, errTransient}}
	r := newrelic.NewRetrying(q, retryConfig(2), testLogger)

	_, err := r.Query(context.Background(), metric.Throughput, "app", "1", "2")
	var transport *apperr.TransportError
	assert.ErrorAs(t, err, &transport)
	assert.Equal(t, 2, q.calls)
}

func TestRetrying_FinalOutcomesAreNotRetried(t *testing.T) {
	finals := []error{
		apperr.ErrNullMetric,
		&apperr.UpstreamError{Message: "bad query"},
		&apperr.TransportError{Op: apperr.OpBuild, Err: errors.New("bad url")},
	}

	for _, final := range finals {
		q := &scriptedQuerier{results: []error{final}}
		r := newrelic.NewRetrying(q, retryConfig(5), testLogger)

		_, err := r.Query(context.Background(), metric.Throughput, "app", "1", "2")
		assert.Equal(t, apperr.Cause(final), apperr.Cause(err))
		assert.Equal(t, 1, q.calls)
	}
}
