// Package server owns the listening socket and the graceful drain that
// follows a termination signal.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"enma/internal/config"
)

type State int32

const (
	StateStarting State = iota
	StateServing
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateServing:
		return "serving"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Server struct {
	cfg    *config.ServerConfig
	logger *slog.Logger
	http   *http.Server

	state atomic.Int32
	live  atomic.Int64
	addr  net.Addr
	ready chan struct{}
}

func New(handler http.Handler, cfg *config.ServerConfig, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.ExchangeTimeout(),
			WriteTimeout:      cfg.ExchangeTimeout(),
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 14, // 16KB
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		ready: make(chan struct{}),
	}
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// Connections is the number of accepted connections not yet closed.
func (s *Server) Connections() int64 {
	return s.live.Load()
}

// Ready is closed once the listener is bound and the server is serving.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr is the bound listener address; nil before Ready is closed.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.addr
	default:
		return nil
	}
}

func (s *Server) setState(st State) {
	s.state.Store(int32(st))
	s.logger.Debug("server state changed", slog.String("state", st.String()))
}

// Run serves until ctx is canceled and then drains: no new connections are
// accepted, open ones get the grace period to finish and are closed after it.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		s.setState(StateStopped)
		return fmt.Errorf("failed to create listener: %w", err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	ln = &countingListener{Listener: ln, live: &s.live}

	s.addr = ln.Addr()
	s.setState(StateServing)
	close(s.ready)
	s.logger.Info("server listening",
		slog.String("addr", s.addr.String()),
		slog.Int("max_connections", s.cfg.MaxConnections))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.http.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		s.setState(StateStopped)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.drain()
	<-serveErr
	s.setState(StateStopped)
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) drain() {
	s.setState(StateDraining)
	s.logger.Info("draining connections",
		slog.Int64("live", s.live.Load()),
		slog.Duration("grace_period", s.cfg.GracePeriod))

	shutdownCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.http.Shutdown(shutdownCtx)
	}()

	grace := time.NewTimer(s.cfg.GracePeriod)
	defer grace.Stop()
	ticker := time.NewTicker(s.cfg.DrainLogInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				s.logger.Warn("shutdown finished with error", slog.String("error", err.Error()))
			}
			s.logger.Info("all connections closed")
			return
		case <-ticker.C:
			s.logger.Info("draining connections", slog.Int64("live", s.live.Load()))
		case <-grace.C:
			s.logger.Warn("grace period elapsed, closing connections",
				slog.Int64("live", s.live.Load()))
			cancel()
			if err := s.http.Close(); err != nil {
				s.logger.Error("failed to close server", slog.String("error", err.Error()))
			}
			<-done
			return
		}
	}
}
