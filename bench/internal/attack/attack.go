package attack

import (
	"fmt"
	"os"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

type Config struct {
	BaseURL  string
	Paths    []string
	Body     []byte
	Rate     int
	Duration time.Duration
	Timeout  time.Duration
}

func Run(cfg *Config) error {
	targeter := MetricTargeter(cfg.BaseURL, cfg.Paths, cfg.Body)

	rate := vegeta.Rate{Freq: cfg.Rate, Per: time.Second}
	attacker := vegeta.NewAttacker(
		vegeta.Redirects(-1),
		vegeta.KeepAlive(true),
		vegeta.Connections(10000),
		vegeta.Timeout(cfg.Timeout),
		vegeta.MaxBody(0),
		vegeta.HTTP2(false),
	)

	fmt.Printf("Starting attack: routes=%d rate=%d/s duration=%s\n", len(cfg.Paths), cfg.Rate, cfg.Duration)

	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, rate, cfg.Duration, "metrics") {
		metrics.Add(res)
	}
	metrics.Close()

	reporter := vegeta.NewTextReporter(&metrics)
	return reporter.Report(os.Stdout)
}
