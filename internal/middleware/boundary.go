package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"enma/internal/apperr"
	"enma/internal/domain"
)

// Boundary turns any error returned by the rest of the chain into exactly
// one response and stops it from reaching the router's error handler.
func Boundary(logger *slog.Logger) echo.MiddlewareFunc {
	handle := ErrorHandler(logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				handle(err, c)
			}
			return nil
		}
	}
}

// ErrorHandler is the echo.HTTPErrorHandler counterpart of Boundary, for
// errors raised before the middleware chain runs.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		path := c.Request().URL.Path
		if c.Response().Committed {
			logger.Warn("error after response was sent",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return
		}

		status, body := respond(err)
		switch {
		case apperr.IsRejection(err):
			logger.Warn("request rejected",
				slog.String("path", path),
				slog.String("cause", apperr.Cause(err)),
			)
		case status >= http.StatusInternalServerError && apperr.Cause(err) == "internal":
			logger.Error("unhandled internal error",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("failed to write error response", slog.String("error", err.Error()))
		}
	}
}

func respond(err error) (int, any) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, domain.ErrorResponse{
			Code:  he.Code,
			Error: strings.ToLower(http.StatusText(he.Code)),
		}
	}
	return apperr.Response(err)
}

// statusOf reports the status a request will end with, including errors the
// boundary has not rendered yet. A failure seen after an admission deadline
// fired is reported as that rejection, which is what the client receives.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	if cause := context.Cause(c.Request().Context()); apperr.IsRejection(cause) {
		return apperr.Status(cause)
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return apperr.Status(err)
}
