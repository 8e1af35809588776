package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"enma/internal/domain"
	"enma/internal/metric"
	"enma/internal/validation"
)

type Route struct {
	Path string
	Kind metric.Kind
}

// Routes maps every metric endpoint under /v1/newrelic to its metric.
var Routes = []Route{
	{Path: "/cpu-requested-cores", Kind: metric.CPURequestedCore},
	{Path: "/cpu-used-cores", Kind: metric.CPUUsedCore},
	{Path: "/pods-total", Kind: metric.TotalPods},
	{Path: "/thread-count", Kind: metric.ThreadCount},
	{Path: "/memory-heap-used", Kind: metric.MemoryHeapUsed},
	{Path: "/throughput", Kind: metric.Throughput},
	{Path: "/response-time-average", Kind: metric.ResponseTimeAverage},
}

var (
	errInvalidBody = domain.ErrorResponse{
		Code:  http.StatusBadRequest,
		Error: validation.ErrInvalidBody.Error(),
	}
	errApplicationNameRequired = domain.ErrorResponse{
		Code:  http.StatusBadRequest,
		Error: validation.ErrEmptyApplicationName.Error(),
	}
)

type Handler struct {
	metricService MetricService
	logger        *slog.Logger
	version       string
	maxBodySize   string
}

func New(metricService MetricService, logger *slog.Logger, version, maxBodySize string) *Handler {
	return &Handler{
		metricService: metricService,
		logger:        logger,
		version:       version,
		maxBodySize:   maxBodySize,
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)

	bodyLimit := middleware.BodyLimit(h.maxBodySize)
	api := e.Group("/v1/newrelic")
	for _, r := range Routes {
		api.POST(r.Path, h.Metric(r.Kind), bodyLimit)
	}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.HealthResponse{
		Code:    http.StatusOK,
		Message: "healthy",
		Version: h.version,
	})
}

// Metric returns the handler for one metric kind. Upstream failures are
// returned as errors and rendered by the error boundary.
func (h *Handler) Metric(kind metric.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req domain.MetricRequest
		if err := c.Bind(&req); err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
				return err
			}
			h.logger.Debug("failed to bind request",
				slog.String("metric", kind.String()),
				slog.String("error", err.Error()),
			)
			return c.JSON(http.StatusBadRequest, errInvalidBody)
		}

		if err := validation.MetricRequest(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errApplicationNameRequired)
		}

		ctx := c.Request().Context()
		value, err := h.metricService.GetMetric(ctx, kind, req.Data)
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return err
		}

		return c.JSON(http.StatusOK, domain.NewMetricResponse(value))
	}
}
