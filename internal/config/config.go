// Package config loads the two configuration layers of the skimmer: the
// operational settings from environment variables and the science
// configuration (sources, models, variable loading statements) from a YAML
// file, validated once into immutable records.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds the operational settings, populated from environment
// variables. The science configuration lives in the sources file (see
// LoadSources).
type Config struct {
	LogLevel  string
	LogFormat string

	// Workers bounds how many model builds and model skims run in parallel.
	Workers int

	// ModelLoadTimeout caps a single model build, so one large remote
	// path expansion cannot stall the whole run.
	ModelLoadTimeout time.Duration

	// MetricsAddr enables the status HTTP server when non-empty.
	MetricsAddr string

	// Kafka skim-report notifier, disabled unless brokers are set.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads operational configuration from environment variables, applying
// defaults where unset.
func Load() (*Config, error) {
	workers, err := parsePositiveInt("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	timeoutStr := envOrDefault("MODEL_LOAD_TIMEOUT", "5m")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid MODEL_LOAD_TIMEOUT")
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "text"),
		Workers:          workers,
		ModelLoadTimeout: timeout,
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		KafkaBrokers:     brokers,
		KafkaTopic:       envOrDefault("KAFKA_TOPIC", "skim-reports"),
		KafkaEnabled:     kafkaEnabled,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when the notifier is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
