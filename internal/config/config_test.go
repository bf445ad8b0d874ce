package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "./vplan.sqlite", cfg.Database.Path)
	assert.Equal(t, "https://api.smartthings.com", cfg.SmartThings.BaseAPIURL)
	assert.Equal(t, 30*time.Second, cfg.SmartThings.Timeout.Duration())
	assert.Equal(t, 3, cfg.SmartThings.MaxAttempts)
	assert.Equal(t, time.Second, cfg.SmartThings.MinRetryBackoff.Duration())
	assert.Equal(t, 30*time.Second, cfg.SmartThings.MaxRetryBackoff.Duration())
	assert.Equal(t, 2.0, cfg.SmartThings.RetryMultiplier)
	assert.Equal(t, 5.0, cfg.SmartThings.RateLimitRPS)
	assert.Equal(t, 5*time.Second, cfg.SmartThings.ToggleDelay.Duration())
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.DailyJitter.Duration())
	assert.Equal(t, time.Hour, cfg.Scheduler.MisfireGrace.Duration())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
  shutdown_timeout: 10s
database:
  path: /var/lib/vplan/vplan.sqlite
smartthings:
  base_api_url: https://example.com
  timeout: 15s
  max_attempts: 5
  min_retry_backoff: 500ms
  max_retry_backoff: 1m
  retry_multiplier: 1.5
  rate_limit_rps: 2
  toggle_delay: 8s
scheduler:
  daily_jitter: 2m
  misfire_grace: 30m
log:
  level: debug
  json: true
`))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "/var/lib/vplan/vplan.sqlite", cfg.Database.Path)
	assert.Equal(t, "https://example.com", cfg.SmartThings.BaseAPIURL)
	assert.Equal(t, 500*time.Millisecond, cfg.SmartThings.MinRetryBackoff.Duration())
	assert.Equal(t, time.Minute, cfg.SmartThings.MaxRetryBackoff.Duration())
	assert.Equal(t, 1.5, cfg.SmartThings.RetryMultiplier)
	assert.Equal(t, 2.0, cfg.SmartThings.RateLimitRPS)
	assert.Equal(t, 8*time.Second, cfg.SmartThings.ToggleDelay.Duration())
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.DailyJitter.Duration())
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.MisfireGrace.Duration())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("VPLAN_TEST_DB", "/tmp/from-env.sqlite")
	cfg, err := Load(writeConfig(t, `
database:
  path: ${VPLAN_TEST_DB}
server:
  host: ${VPLAN_TEST_MISSING:fallback-host}
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.sqlite", cfg.Database.Path)
	assert.Equal(t, "fallback-host", cfg.Server.Host)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not a map"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server:\n  shutdown_timeout: banana\n"))
	assert.Error(t, err)
}
