// Package config loads service settings from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers   []string
	KafkaSinkTopic string
	HTTPAddr       string
	LogLevel       string
	LogFormat      string

	// NWIS endpoints and fetch behavior.
	WaterServicesURL string // waterservices.usgs.gov style services (iv, dv, site)
	WaterDataURL     string // nwis.waterdata.usgs.gov style services (qw, rating, measurements, peak, pmcodes)
	FetchTimeout     time.Duration
	CacheSize        int

	// Ingest loop.
	Sites           []string
	ParameterCodes  []string
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	fetchTimeout, err := durationVar("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := durationVar("POLL_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationVar("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheSize, err := intVar("CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:   listVar("KAFKA_BROKERS", "localhost:9092"),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "water-observations"),
		HTTPAddr:       envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),

		WaterServicesURL: envOrDefault("WATER_SERVICES_URL", "https://waterservices.usgs.gov"),
		WaterDataURL:     envOrDefault("WATER_DATA_URL", "https://nwis.waterdata.usgs.gov"),
		FetchTimeout:     fetchTimeout,
		CacheSize:        cacheSize,

		Sites:           listVar("SITES", ""),
		ParameterCodes:  listVar("PARAMETER_CODES", "00060"),
		PollInterval:    pollInterval,
		ShutdownTimeout: shutdownTimeout,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, fmt.Errorf("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// listVar splits a comma-separated env var, trimming whitespace and
// dropping empty entries.
func listVar(key, fallback string) []string {
	raw := envOrDefault(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationVar(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func intVar(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}
