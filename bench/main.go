package main

import (
	"context"
	"fmt"
	"os"

	"bench/internal/attack"
	"bench/internal/burst"
	"bench/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	paths, err := attack.Paths(cfg.Metric)
	if err != nil {
		return err
	}
	body, err := attack.Body(cfg.ApplicationName, cfg.StartTime, cfg.EndTime)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	switch cfg.BenchType {
	case "attack":
		return attack.Run(&attack.Config{
			BaseURL:  cfg.BaseURL,
			Paths:    paths,
			Body:     body,
			Rate:     cfg.Rate,
			Duration: cfg.Duration,
			Timeout:  cfg.Timeout,
		})
	case "burst":
		result, err := burst.Run(context.Background(), &burst.Config{
			BaseURL:            cfg.BaseURL,
			Paths:              paths,
			Body:               body,
			Size:               cfg.BurstSize,
			Timeout:            cfg.Timeout,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		})
		if err != nil {
			return fmt.Errorf("burst failed: %w", err)
		}
		return result.Report(os.Stdout)
	default:
		return fmt.Errorf("unknown bench type: %s", cfg.BenchType)
	}
}
