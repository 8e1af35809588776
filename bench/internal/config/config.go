package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	BaseURL            string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	BenchType          string        `env:"BENCH_TYPE" envDefault:"attack"`
	Metric             string        `env:"METRIC" envDefault:"all"`
	ApplicationName    string        `env:"APPLICATION_NAME" envDefault:"checkout"`
	StartTime          string        `env:"START_TIME" envDefault:"1 hour ago"`
	EndTime            string        `env:"END_TIME" envDefault:"now"`
	Rate               int           `env:"RATE" envDefault:"20"`
	Duration           time.Duration `env:"DURATION" envDefault:"30s"`
	BurstSize          int           `env:"BURST_SIZE" envDefault:"50"`
	Timeout            time.Duration `env:"TIMEOUT" envDefault:"30s"`
	InsecureSkipVerify bool          `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
