package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodySize)
	assert.Equal(t, "sales-completed", cfg.KafkaTopic)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.Empty(t, cfg.Brokers())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 6543, cfg.DBPort)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "HTTP_PORT=7070\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "DB_DRIVER")
}

func TestLoad_SessionIdleTimeout(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "45m")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.SessionIdleTimeout)
}

func TestLoad_IdleTimeoutMustBeShorterThanCartTTL(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SESSION_TTL", "20m")
	t.Setenv("SESSION_IDLE_TIMEOUT", "30m")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "SESSION_IDLE_TIMEOUT")
}

func TestLoad_NonPositiveIdleTimeout(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "0s")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "SESSION_IDLE_TIMEOUT must be positive")
}
