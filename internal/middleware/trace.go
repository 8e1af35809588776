package middleware

import (
	"cmp"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"enma/internal/requestid"
)

type SpanStarter interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// Trace wraps each request in a server span and logs one line per response.
func Trace(tracer SpanStarter, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			route := cmp.Or(c.Path(), req.URL.Path)
			ip := remoteHost(req.RemoteAddr)
			realIP := req.Header.Get(echo.HeaderXRealIP)
			reqID := requestid.FromContext(req.Context())

			ctx, span := tracer.Start(req.Context(), "HTTP "+req.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.route", route),
					attribute.String("path", req.URL.Path),
					attribute.String("ip", ip),
					attribute.String("x_real_ip", realIP),
					attribute.String("request_id", reqID),
				),
			)
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			status := statusOf(c, err)
			elapsed := time.Since(start)
			span.SetAttributes(
				attribute.Int("http.status_code", status),
				attribute.Int64("ms", elapsed.Milliseconds()),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			logger.Info("response processed",
				slog.String("path", req.URL.Path),
				slog.String("ip", ip),
				slog.String("x_real_ip", realIP),
				slog.String("request_id", reqID),
				slog.Int("status_code", status),
				slog.Int64("ms", elapsed.Milliseconds()),
			)

			return err
		}
	}
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
