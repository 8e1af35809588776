package newrelic

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"enma/internal/apperr"
	"enma/internal/config"
	"enma/internal/metric"
)

type Querier interface {
	Query(ctx context.Context, kind metric.Kind, applicationName, startTime, endTime string) (float64, error)
}

// Retrying retries transport failures of the wrapped Querier with
// exponential backoff. Provider-reported errors and null metrics are final.
type Retrying struct {
	next   Querier
	cfg    config.RetryConfig
	logger *slog.Logger
}

func NewRetrying(next Querier, cfg config.RetryConfig, logger *slog.Logger) *Retrying {
	return &Retrying{next: next, cfg: cfg, logger: logger}
}

func (r *Retrying) Query(ctx context.Context, kind metric.Kind, applicationName, startTime, endTime string) (float64, error) {
	if r.cfg.MaxAttempts <= 1 {
		return r.next.Query(ctx, kind, applicationName, startTime, endTime)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval

	operation := func() (float64, error) {
		v, err := r.next.Query(ctx, kind, applicationName, startTime, endTime)
		if err == nil {
			return v, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("retrying upstream query",
				slog.String("application", applicationName),
				slog.String("metric", kind.String()),
				slog.Duration("backoff", next),
				slog.String("error", err.Error()))
		}),
	)
}

func retryable(err error) bool {
	var transport *apperr.TransportError
	return errors.As(err, &transport) && transport.Op != apperr.OpBuild
}
