package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	NewRelic NewRelicConfig `yaml:"newrelic"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Pprof    PprofConfig    `yaml:"pprof"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host             string        `yaml:"host" env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port             int           `yaml:"port" env:"SERVER_PORT" envDefault:"8080"`
	Buffer           int           `yaml:"buffer" env:"SERVER_BUFFER" envDefault:"10"`
	ConcurrencyLimit int           `yaml:"concurrency_limit" env:"SERVER_CONCURRENCY_LIMIT" envDefault:"5"`
	RateLimit        int           `yaml:"rate_limit" env:"SERVER_RATE_LIMIT" envDefault:"5"`
	RateLimitWindow  time.Duration `yaml:"rate_limit_window" env:"SERVER_RATE_LIMIT_WINDOW" envDefault:"1s"`
	LimiterTimeout   time.Duration `yaml:"limiter_timeout" env:"SERVER_LIMITER_TIMEOUT" envDefault:"10s"`
	RequestTimeout   time.Duration `yaml:"timeout" env:"SERVER_REQUEST_TIMEOUT" envDefault:"10s"`
	MaxConnections   int           `yaml:"max_connections" env:"SERVER_MAX_CONNECTIONS" envDefault:"0"`
	MaxBodySize      string        `yaml:"max_body_size" env:"SERVER_MAX_BODY_SIZE" envDefault:"64K"`
	GracePeriod      time.Duration `yaml:"grace_period" env:"SERVER_GRACE_PERIOD" envDefault:"30s"`
	DrainLogInterval time.Duration `yaml:"drain_log_interval" env:"SERVER_DRAIN_LOG_INTERVAL" envDefault:"1s"`
}

// Addr is the host:port the listener binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ExchangeTimeout bounds a whole request on the connection: the longest
// wait in the admission queue, the request's own timeout and a margin for
// reading the body and writing the response.
func (c *ServerConfig) ExchangeTimeout() time.Duration {
	concurrency := max(c.ConcurrencyLimit, 1)
	waves := (c.Buffer + concurrency - 1) / concurrency
	return time.Duration(waves+1)*c.RequestTimeout + c.LimiterTimeout + exchangeMargin
}

const exchangeMargin = 5 * time.Second

type NewRelicConfig struct {
	APIKey         string        `yaml:"api_key" env:"NEWRELIC_API_KEY"`
	AccountID      int           `yaml:"account_id" env:"NEWRELIC_ACCOUNT_ID"`
	BaseURL        string        `yaml:"base_url" env:"NEWRELIC_BASE_URL" envDefault:"https://insights-api.newrelic.com"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"NEWRELIC_CONNECT_TIMEOUT" envDefault:"5s"`
	Retry          RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts     uint          `yaml:"max_attempts" env:"NEWRELIC_RETRY_MAX_ATTEMPTS" envDefault:"1"`
	InitialInterval time.Duration `yaml:"initial_interval" env:"NEWRELIC_RETRY_INITIAL_INTERVAL" envDefault:"100ms"`
	MaxInterval     time.Duration `yaml:"max_interval" env:"NEWRELIC_RETRY_MAX_INTERVAL" envDefault:"2s"`
}

type MetricsConfig struct {
	Enabled bool       `yaml:"enabled" env:"METRICS_ENABLED" envDefault:"false"`
	Path    string     `yaml:"path" env:"METRICS_PATH" envDefault:"/metrics"`
	Sink    SinkConfig `yaml:"sink"`
}

// SinkConfig controls the optional Postgres copy of recorded samples. An
// empty DatabaseURL leaves it off.
type SinkConfig struct {
	DatabaseURL    string        `yaml:"database_url" env:"METRICS_DATABASE_URL"`
	BufferSize     int           `yaml:"buffer_size" env:"METRICS_BUFFER_SIZE" envDefault:"10000"`
	FlushThreshold int           `yaml:"flush_threshold" env:"METRICS_FLUSH_THRESHOLD" envDefault:"500"`
	FlushInterval  time.Duration `yaml:"flush_interval" env:"METRICS_FLUSH_INTERVAL" envDefault:"1s"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" env:"TRACING_ENABLED" envDefault:"false"`
	ServiceName  string  `yaml:"service_name" env:"TRACING_SERVICE_NAME" envDefault:"enma"`
	Exporter     string  `yaml:"exporter" env:"TRACING_EXPORTER" envDefault:"stdout"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTLPInsecure bool    `yaml:"otlp_insecure" env:"TRACING_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `yaml:"sample_ratio" env:"TRACING_SAMPLE_RATIO" envDefault:"1.0"`
}

type PprofConfig struct {
	Enabled bool   `yaml:"enabled" env:"PPROF_ENABLED" envDefault:"false"`
	Secret  string `yaml:"secret" env:"PPROF_SECRET"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" envDefault:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" envDefault:"json"`
}

var (
	ErrInvalidPort        = errors.New("server port must be between 1 and 65535")
	ErrNonPositiveLimit   = errors.New("buffer, concurrency limit and rate limit must be positive")
	ErrNonPositiveTimeout = errors.New("limiter timeout, request timeout, rate limit window, grace period and drain log interval must be positive")
	ErrMissingCredentials = errors.New("newrelic api key and account id are required")
	ErrInvalidSink        = errors.New("metrics sink buffer size, flush threshold and flush interval must be positive")
)

// Load reads configuration from the environment. When CONFIG_FILE names a
// YAML document, values present in it replace the environment ones.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return ErrInvalidPort
	}
	if s.Buffer <= 0 || s.ConcurrencyLimit <= 0 || s.RateLimit <= 0 {
		return ErrNonPositiveLimit
	}
	if s.LimiterTimeout <= 0 || s.RequestTimeout <= 0 || s.RateLimitWindow <= 0 ||
		s.GracePeriod <= 0 || s.DrainLogInterval <= 0 {
		return ErrNonPositiveTimeout
	}
	if c.NewRelic.APIKey == "" || c.NewRelic.AccountID == 0 {
		return ErrMissingCredentials
	}
	if sink := c.Metrics.Sink; sink.DatabaseURL != "" &&
		(sink.BufferSize <= 0 || sink.FlushThreshold <= 0 || sink.FlushInterval <= 0) {
		return ErrInvalidSink
	}
	return nil
}
