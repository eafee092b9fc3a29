package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers    []string
	KafkaSinkTopic  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	FleetFile       string
	RefreshInterval time.Duration

	// Open-Meteo forecast configuration.
	OpenMeteoBaseURL  string
	OpenMeteoTimeout  time.Duration
	OpenMeteoRetries  int
	ForecastCacheTTL  time.Duration
	ForecastCacheSize int

	// StorePath enables the SQLite report store when set.
	StorePath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	omTimeout, err := parsePositiveDuration("OPENMETEO_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("FORECAST_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	retries, err := parseInt("OPENMETEO_RETRIES", 5, 0, 10)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("FORECAST_CACHE_SIZE", 256, 1, 100000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "turbine-yield-reports"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FleetFile:       sharedcfg.EnvOrDefault("FLEET_FILE", "fleet.yaml"),
		RefreshInterval: refreshInterval,

		OpenMeteoBaseURL:  sharedcfg.EnvOrDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com/v1/dwd-icon"),
		OpenMeteoTimeout:  omTimeout,
		OpenMeteoRetries:  retries,
		ForecastCacheTTL:  cacheTTL,
		ForecastCacheSize: cacheSize,

		StorePath: os.Getenv("STORE_PATH"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.FleetFile == "" {
		return nil, errors.New("FLEET_FILE is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}
