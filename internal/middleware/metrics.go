package middleware

import (
	"cmp"
	"time"

	"github.com/labstack/echo/v4"

	"enma/internal/metrics"
)

type HTTPRecorder interface {
	RecordHTTP(m metrics.HTTPMetric)
}

func Metrics(recorder HTTPRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			recorder.RecordHTTP(metrics.HTTPMetric{
				Method:     c.Request().Method,
				Path:       cmp.Or(c.Path(), "/"),
				StatusCode: statusOf(c, err),
				Duration:   time.Since(start),
			})

			return err
		}
	}
}
