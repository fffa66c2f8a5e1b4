package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origHost := os.Getenv("DB_HOST")
	defer os.Setenv("DB_HOST", origHost)

	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_MAX_OPEN_CONNS", "20")
	os.Setenv("MINIO_USE_SSL", "true")
	os.Setenv("ASSIST_ENABLED", "true")
	os.Setenv("ASSIST_TIMEOUT_MS", "1500")
	os.Setenv("RETENTION_DAYS", "14")
	defer func() {
		os.Unsetenv("DB_MAX_OPEN_CONNS")
		os.Unsetenv("MINIO_USE_SSL")
		os.Unsetenv("ASSIST_ENABLED")
		os.Unsetenv("ASSIST_TIMEOUT_MS")
		os.Unsetenv("RETENTION_DAYS")
	}()

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.True(t, cfg.Assist.Enabled)
	assert.Equal(t, 1500*time.Millisecond, cfg.Assist.Timeout)
	assert.Equal(t, 14, cfg.Variation.RetentionDays)
}

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("TITLE_MAX_LEN")
	os.Unsetenv("RETENTION_DAYS")
	os.Unsetenv("ASSIST_ENABLED")

	cfg := Load()

	assert.Equal(t, 60, cfg.Variation.TitleMaxLen)
	assert.Equal(t, 30, cfg.Variation.RetentionDays)
	assert.False(t, cfg.Assist.Enabled)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Assist.Model)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
