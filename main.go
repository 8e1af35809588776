package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"enma/internal/config"
	"enma/internal/handler"
	"enma/internal/metrics"
	custommiddleware "enma/internal/middleware"
	"enma/internal/newrelic"
	"enma/internal/requestid"
	"enma/internal/server"
	"enma/internal/service"
	"enma/internal/tracing"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(ctx, logger); err != nil {
		logger.Error("application failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger = newLogger(&cfg.Log)

	tracer, err := tracing.New(&cfg.Tracing, version)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	var recorderOpts []metrics.Option
	if cfg.Metrics.Enabled && cfg.Metrics.Sink.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Metrics.Sink.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to metrics database: %w", err)
		}
		defer pool.Close()

		sink := metrics.NewSink(pool, &cfg.Metrics.Sink, logger)
		if err := sink.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to create metrics schema: %w", err)
		}
		sink.Start(context.WithoutCancel(ctx))
		defer sink.Close()
		recorderOpts = append(recorderOpts, metrics.WithSink(sink))
	}
	recorder := metrics.NewRecorder(&cfg.Metrics, logger, recorderOpts...)

	client := newrelic.New(&cfg.NewRelic, newrelic.WithUserAgent("enma/"+version))
	querier := newrelic.NewRetrying(client, cfg.NewRelic.Retry, logger)
	metricService := service.NewMetricService(querier, recorder, logger)
	h := handler.New(metricService, logger, version, cfg.Server.MaxBodySize)

	limits := custommiddleware.NewLimits(&cfg.Server)

	e, err := newEcho(cfg, h, recorder, limits, tracer, logger)
	if err != nil {
		return err
	}

	srv := server.New(e, &cfg.Server, logger)

	if recorder.Enabled() {
		go collectInfraMetrics(ctx, recorder, srv)
	}

	logger.Info("starting enma",
		slog.String("version", version),
		slog.String("addr", cfg.Server.Addr()),
		slog.Int("buffer", cfg.Server.Buffer),
		slog.Int("concurrency_limit", cfg.Server.ConcurrencyLimit),
		slog.Int("rate_limit", cfg.Server.RateLimit),
		slog.Duration("rate_limit_window", cfg.Server.RateLimitWindow),
		slog.Duration("limiter_timeout", cfg.Server.LimiterTimeout),
		slog.Duration("request_timeout", cfg.Server.RequestTimeout))

	return srv.Run(ctx)
}

// newEcho assembles the admission pipeline in its fixed order and registers
// every route. /metrics and /debug/pprof exist only when enabled.
func newEcho(
	cfg *config.Config,
	h *handler.Handler,
	recorder *metrics.Recorder,
	limits *custommiddleware.Limits,
	tracer custommiddleware.SpanStarter,
	logger *slog.Logger,
) (*echo.Echo, error) {
	ids, err := requestid.New(uint64(time.Now().Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request id generator: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = custommiddleware.ErrorHandler(logger)
	e.Use(
		custommiddleware.RequestID(ids),
		custommiddleware.Boundary(logger),
		middleware.RecoverWithConfig(middleware.RecoverConfig{
			DisableErrorHandler: true,
			LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
				logger.Error("panic recovered",
					slog.String("path", c.Request().URL.Path),
					slog.String("error", err.Error()),
					slog.String("stack", string(stack)))
				return err
			},
		}),
		custommiddleware.Admission(limits),
		custommiddleware.Timeout(cfg.Server.RequestTimeout),
		custommiddleware.RateLimit(limits.Limiter(), cfg.Server.LimiterTimeout),
		custommiddleware.Trace(tracer, logger),
	)
	if recorder.Enabled() {
		e.Use(custommiddleware.Metrics(recorder))
	}
	e.Use(middleware.Gzip())

	h.Register(e)

	if recorder.Enabled() {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(recorder.Handler()))
		logger.Info("metrics endpoint enabled", slog.String("path", cfg.Metrics.Path))
	}

	if cfg.Pprof.Enabled {
		pprofGroup := e.Group("/debug/pprof", custommiddleware.PprofAuth(cfg.Pprof.Secret))
		custommiddleware.RegisterPprof(pprofGroup)
		logger.Info("pprof endpoints enabled", slog.String("path", "/debug/pprof/*"))
	}

	return e, nil
}

func newLogger(cfg *config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func collectInfraMetrics(ctx context.Context, recorder *metrics.Recorder, srv *server.Server) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)

			recorder.RecordInfra(metrics.InfraMetric{
				Goroutines:      runtime.NumGoroutine(),
				HeapAllocMB:     float64(memStats.HeapAlloc) / 1024 / 1024,
				LiveConnections: srv.Connections(),
			})
		}
	}
}
