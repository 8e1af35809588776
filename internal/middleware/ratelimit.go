package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"enma/internal/apperr"
)

// RateLimit takes one token from limiter per request, waiting at most
// timeout. A wait that cannot finish in time fails with
// apperr.ErrRateLimitTimeout, unless the request itself expired first.
func RateLimit(limiter *rate.Limiter, timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			parent := c.Request().Context()
			ctx, cancel := context.WithTimeoutCause(parent, timeout, apperr.ErrRateLimitTimeout)
			err := limiter.Wait(ctx)
			cancel()
			if err != nil {
				if parent.Err() != nil {
					return context.Cause(parent)
				}
				return apperr.ErrRateLimitTimeout
			}
			return next(c)
		}
	}
}
