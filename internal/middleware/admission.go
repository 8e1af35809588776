package middleware

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"enma/internal/apperr"
	"enma/internal/config"
)

// Limits holds the shared admission state: a concurrency semaphore, the
// number of requests queued behind it, and the global token bucket.
type Limits struct {
	sem     *semaphore.Weighted
	queued  atomic.Int64
	buffer  int64
	limiter *rate.Limiter
}

func NewLimits(cfg *config.ServerConfig) *Limits {
	every := cfg.RateLimitWindow / time.Duration(cfg.RateLimit)
	return &Limits{
		sem:     semaphore.NewWeighted(int64(cfg.ConcurrencyLimit)),
		buffer:  int64(cfg.Buffer),
		limiter: rate.NewLimiter(rate.Every(every), cfg.RateLimit),
	}
}

// Limiter is the token bucket consumed by RateLimit.
func (l *Limits) Limiter() *rate.Limiter {
	return l.limiter
}

// Queued is the number of requests waiting for a concurrency slot.
func (l *Limits) Queued() int64 {
	return l.queued.Load()
}

// Admission sheds load once the buffer is full and otherwise admits requests
// in arrival order, at most concurrency_limit at a time.
func Admission(l *Limits) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.sem.TryAcquire(1) {
				if l.queued.Add(1) > l.buffer {
					l.queued.Add(-1)
					return apperr.ErrOverloaded
				}
				ctx := c.Request().Context()
				err := l.sem.Acquire(ctx, 1)
				l.queued.Add(-1)
				if err != nil {
					return context.Cause(ctx)
				}
			}
			defer l.sem.Release(1)

			return next(c)
		}
	}
}
