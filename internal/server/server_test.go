package server_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enma/internal/config"
	"enma/internal/middleware"
	"enma/internal/server"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(grace time.Duration) *config.ServerConfig {
	return &config.ServerConfig{
		Host:             "127.0.0.1",
		Port:             0,
		RequestTimeout:   time.Second,
		LimiterTimeout:   time.Second,
		GracePeriod:      grace,
		DrainLogInterval: 20 * time.Millisecond,
	}
}

type running struct {
	srv    *server.Server
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, h http.Handler, cfg *config.ServerConfig, logOut io.Writer) *running {
	t.Helper()
	srv := server.New(h, cfg, slog.New(slog.NewTextHandler(logOut, nil)))
	assert.Equal(t, server.StateStarting, srv.State())
	assert.Nil(t, srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("server exited early: %v", err)
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("server did not become ready")
	}
	t.Cleanup(cancel)
	return &running{srv: srv, cancel: cancel, done: done}
}

func (r *running) url(path string) string {
	return "http://" + r.srv.Addr().String() + path
}

func (r *running) wait(t *testing.T, within time.Duration) time.Duration {
	t.Helper()
	begin := time.Now()
	select {
	case err := <-r.done:
		require.NoError(t, err)
	case <-time.After(within):
		t.Fatalf("server did not stop within %s", within)
	}
	return time.Since(begin)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "starting", server.StateStarting.String())
	assert.Equal(t, "serving", server.StateServing.String())
	assert.Equal(t, "draining", server.StateDraining.String())
	assert.Equal(t, "stopped", server.StateStopped.String())
	assert.Equal(t, "unknown", server.State(42).String())
}

func TestRun_TracksLiveConnections(t *testing.T) {
	r := start(t, http.NotFoundHandler(), testConfig(time.Second), io.Discard)
	assert.Equal(t, server.StateServing, r.srv.State())

	conn, err := net.Dial("tcp", r.srv.Addr().String())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.srv.Connections() == 1 }, time.Second, 5*time.Millisecond)

	conn2, err := net.Dial("tcp", r.srv.Addr().String())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.srv.Connections() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.NoError(t, conn2.Close())

	// the server notices the peer close on its next read
	require.Eventually(t, func() bool { return r.srv.Connections() == 0 }, 2*time.Second, 5*time.Millisecond)

	r.cancel()
	r.wait(t, time.Second)
	assert.Equal(t, server.StateStopped, r.srv.State())
}

func TestRun_DrainFinishesEarly(t *testing.T) {
	entered := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	r := start(t, h, testConfig(10*time.Second), io.Discard)

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get(r.url("/"))
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()
	<-entered

	r.cancel()
	require.Eventually(t, func() bool { return r.srv.State() != server.StateServing }, time.Second, time.Millisecond)

	elapsed := r.wait(t, 5*time.Second)
	assert.Less(t, elapsed, 2*time.Second, "drain must end once connections are gone")
	assert.Equal(t, http.StatusOK, <-status)
	assert.Equal(t, server.StateStopped, r.srv.State())
	assert.Zero(t, r.srv.Connections())
}

func TestRun_ForcesCloseAfterGrace(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	h := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		close(entered)
		select {
		case <-release:
		case <-req.Context().Done():
		}
	})

	logs := &syncBuffer{}
	grace := 200 * time.Millisecond
	r := start(t, h, testConfig(grace), logs)

	clientErr := make(chan error, 1)
	go func() {
		resp, err := http.Get(r.url("/"))
		if err == nil {
			resp.Body.Close()
		}
		clientErr <- err
	}()
	<-entered

	canceledAt := time.Now()
	r.cancel()
	require.Eventually(t, func() bool { return r.srv.State() == server.StateDraining }, time.Second, time.Millisecond)

	// listener is closed while draining
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", r.srv.Addr().String())
		if err != nil {
			return true
		}
		conn.Close()
		return false
	}, time.Second, 10*time.Millisecond)

	r.wait(t, 5*time.Second)
	assert.GreaterOrEqual(t, time.Since(canceledAt), grace)
	assert.Error(t, <-clientErr)
	assert.Equal(t, server.StateStopped, r.srv.State())

	out := logs.String()
	assert.Contains(t, out, "draining connections")
	assert.Contains(t, out, "live=1")
	assert.Contains(t, out, "grace period elapsed")
}

func TestRun_ListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(time.Second)
	cfg.Port = busy.Addr().(*net.TCPAddr).Port

	srv := server.New(http.NotFoundHandler(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err = srv.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, server.StateStopped, srv.State())
	assert.Nil(t, srv.Addr())
}

func TestRun_MaxConnections(t *testing.T) {
	cfg := testConfig(time.Second)
	cfg.MaxConnections = 1
	r := start(t, http.NotFoundHandler(), cfg, io.Discard)

	conn, err := net.Dial("tcp", r.srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return r.srv.Connections() == 1 }, time.Second, 5*time.Millisecond)

	// a second dial completes at TCP level but is not accepted
	conn2, err := net.Dial("tcp", r.srv.Addr().String())
	require.NoError(t, err)
	defer conn2.Close()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), r.srv.Connections())
}

func TestRun_QueuedRequestsAllGetAResponse(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for eight request timeouts")
	}

	cfg := testConfig(time.Second)
	cfg.Buffer = 7
	cfg.ConcurrencyLimit = 1
	cfg.RateLimit = 100
	cfg.RateLimitWindow = time.Second
	cfg.RequestTimeout = time.Second
	cfg.LimiterTimeout = time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limits := middleware.NewLimits(cfg)
	e := echo.New()
	e.Use(
		middleware.Boundary(logger),
		middleware.Admission(limits),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.RateLimit(limits.Limiter(), cfg.LimiterTimeout),
	)
	e.POST("/slow", func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})

	r := start(t, e, cfg, io.Discard)

	total := cfg.Buffer + cfg.ConcurrencyLimit
	var (
		mu       sync.Mutex
		statuses = map[int]int{}
		failures []error
		wg       sync.WaitGroup
	)
	for range total {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(r.url("/slow"), echo.MIMEApplicationJSON, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			_ = resp.Body.Close()
			statuses[resp.StatusCode]++
		}()
	}
	wg.Wait()

	assert.Empty(t, failures)
	assert.Equal(t, map[int]int{http.StatusRequestTimeout: total}, statuses)
}
