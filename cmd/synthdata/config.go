package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/synthdata/internal/requirements"
	"github.com/shpitdev/synthdata/internal/requirements/gemini"
	"github.com/shpitdev/synthdata/pkg/synth"
)

const defaultListenAddr = ":8080"

func loadGeminiConfigFromEnv() (gemini.Config, error) {
	maxRetries, err := envInt("MAX_RETRIES", 3)
	if err != nil {
		return gemini.Config{}, err
	}
	requestTimeout, err := envDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return gemini.Config{}, err
	}
	rateLimitRPS, err := envFloat("GEMINI_RATE_LIMIT_RPS", 0)
	if err != nil {
		return gemini.Config{}, err
	}
	return gemini.Config{
		APIKey:         strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:          strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		BaseURL:        strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		MaxRetries:     maxRetries,
		RequestTimeout: requestTimeout,
		RateLimitRPS:   rateLimitRPS,
	}, nil
}

func loadGeneratorOptionsFromEnv() (synth.Options, error) {
	batchSize, err := envInt("BATCH_SIZE", synth.DefaultBatchSize)
	if err != nil {
		return synth.Options{}, err
	}
	workers, err := envInt("WORKERS", 0)
	if err != nil {
		return synth.Options{}, err
	}
	seed, err := envUint("SEED", 0)
	if err != nil {
		return synth.Options{}, err
	}
	return synth.Options{
		BatchSize: batchSize,
		Workers:   workers,
		Seed:      seed,
	}, nil
}

// newParser returns nil when no API key is configured; commands that need free-text
// parsing then fail with app.ErrNoParser.
func newParser(ctx context.Context, cfg gemini.Config) (requirements.Parser, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	p, err := gemini.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func envString(varName, fallback string) string {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envUint(varName string, fallback uint64) (uint64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
