package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "turbine-yield-reports", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "fleet.yaml", cfg.FleetFile)
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
	assert.Equal(t, "https://api.open-meteo.com/v1/dwd-icon", cfg.OpenMeteoBaseURL)
	assert.Equal(t, 10*time.Second, cfg.OpenMeteoTimeout)
	assert.Equal(t, 5, cfg.OpenMeteoRetries)
	assert.Equal(t, time.Hour, cfg.ForecastCacheTTL)
	assert.Equal(t, 256, cfg.ForecastCacheSize)
	assert.Empty(t, cfg.StorePath)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FLEET_FILE", "/etc/wind/park.yaml")
	t.Setenv("REFRESH_INTERVAL", "15m")
	t.Setenv("OPENMETEO_BASE_URL", "http://localhost:8081/v1/forecast")
	t.Setenv("OPENMETEO_TIMEOUT", "3s")
	t.Setenv("OPENMETEO_RETRIES", "0")
	t.Setenv("FORECAST_CACHE_TTL", "30m")
	t.Setenv("FORECAST_CACHE_SIZE", "32")
	t.Setenv("STORE_PATH", "/var/lib/wind/reports.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/etc/wind/park.yaml", cfg.FleetFile)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "http://localhost:8081/v1/forecast", cfg.OpenMeteoBaseURL)
	assert.Equal(t, 3*time.Second, cfg.OpenMeteoTimeout)
	assert.Equal(t, 0, cfg.OpenMeteoRetries)
	assert.Equal(t, 30*time.Minute, cfg.ForecastCacheTTL)
	assert.Equal(t, 32, cfg.ForecastCacheSize)
	assert.Equal(t, "/var/lib/wind/reports.db", cfg.StorePath)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"REFRESH_INTERVAL", "soon"},
		{"REFRESH_INTERVAL", "-1m"},
		{"OPENMETEO_TIMEOUT", "0s"},
		{"FORECAST_CACHE_TTL", "bad"},
		{"OPENMETEO_RETRIES", "eleven"},
		{"OPENMETEO_RETRIES", "11"},
		{"FORECAST_CACHE_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
