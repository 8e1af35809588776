package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"enma/internal/config"
)

// DB is the subset of *pgxpool.Pool the sink writes through.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const Schema = `
CREATE TABLE IF NOT EXISTS http_metrics (
	time        TIMESTAMPTZ      NOT NULL,
	method      TEXT             NOT NULL,
	path        TEXT             NOT NULL,
	status_code INTEGER          NOT NULL,
	duration_ms DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS upstream_metrics (
	time        TIMESTAMPTZ      NOT NULL,
	metric      TEXT             NOT NULL,
	outcome     TEXT             NOT NULL,
	duration_ms DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS infra_metrics (
	time             TIMESTAMPTZ      NOT NULL,
	goroutines       INTEGER          NOT NULL,
	heap_alloc_mb    DOUBLE PRECISION NOT NULL,
	live_connections BIGINT           NOT NULL
);`

type table struct {
	name    string
	columns []string
	rows    chan []any
}

// Sink batches samples in memory and copies them into Postgres whenever a
// table reaches the flush threshold or the flush interval ticks. Samples are
// dropped, not blocked on, when a buffer is full.
type Sink struct {
	db     DB
	cfg    *config.SinkConfig
	logger *slog.Logger

	http     *table
	upstream *table
	infra    *table

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func NewSink(db DB, cfg *config.SinkConfig, logger *slog.Logger) *Sink {
	newTable := func(name string, columns ...string) *table {
		return &table{name: name, columns: columns, rows: make(chan []any, cfg.BufferSize)}
	}

	return &Sink{
		db:         db,
		cfg:        cfg,
		logger:     logger,
		http:       newTable("http_metrics", "time", "method", "path", "status_code", "duration_ms"),
		upstream:   newTable("upstream_metrics", "time", "metric", "outcome", "duration_ms"),
		infra:      newTable("infra_metrics", "time", "goroutines", "heap_alloc_mb", "live_connections"),
		shutdownCh: make(chan struct{}),
	}
}

// EnsureSchema creates the sample tables if they do not exist yet.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

func (s *Sink) RecordHTTP(m HTTPMetric) {
	s.enqueue(s.http, []any{time.Now(), m.Method, m.Path, m.StatusCode, ms(m.Duration)})
}

func (s *Sink) RecordUpstream(m UpstreamMetric) {
	s.enqueue(s.upstream, []any{time.Now(), m.Metric, m.Outcome, ms(m.Duration)})
}

func (s *Sink) RecordInfra(m InfraMetric) {
	s.enqueue(s.infra, []any{time.Now(), m.Goroutines, m.HeapAllocMB, m.LiveConnections})
}

func (s *Sink) enqueue(t *table, row []any) {
	select {
	case t.rows <- row:
	default:
		s.logger.Warn("metrics buffer full, dropping sample", slog.String("table", t.name))
	}
}

// Start launches one flusher per table. They stop when ctx is done or Close
// is called, writing out whatever is still buffered.
func (s *Sink) Start(ctx context.Context) {
	tables := []*table{s.http, s.upstream, s.infra}
	s.wg.Add(len(tables))
	for _, t := range tables {
		go s.flush(ctx, t)
	}

	s.logger.Info("metrics sink started",
		slog.Int("buffer_size", s.cfg.BufferSize),
		slog.Int("flush_threshold", s.cfg.FlushThreshold),
		slog.Duration("flush_interval", s.cfg.FlushInterval))
}

func (s *Sink) Close() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
		s.wg.Wait()
	})
}

func (s *Sink) flush(ctx context.Context, t *table) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([][]any, 0, s.cfg.FlushThreshold)

	for {
		select {
		case <-ctx.Done():
			s.drain(t, batch)
			return
		case <-s.shutdownCh:
			s.drain(t, batch)
			return
		case row := <-t.rows:
			batch = append(batch, row)
			if len(batch) >= s.cfg.FlushThreshold {
				s.write(ctx, t, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.write(ctx, t, batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *Sink) drain(t *table, batch [][]any) {
	for {
		select {
		case row := <-t.rows:
			batch = append(batch, row)
		default:
			if len(batch) > 0 {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				s.write(ctx, t, batch)
				cancel()
			}
			return
		}
	}
}

func (s *Sink) write(ctx context.Context, t *table, batch [][]any) {
	_, err := s.db.CopyFrom(ctx, pgx.Identifier{t.name}, t.columns, pgx.CopyFromRows(batch))
	if err != nil {
		s.logger.Error("failed to write metrics batch",
			slog.String("table", t.name),
			slog.Int("rows", len(batch)),
			slog.String("error", err.Error()))
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
