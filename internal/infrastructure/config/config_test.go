package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1:8077", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.Empty(t, cfg.Shell.AppsDirs)
	assert.Equal(t, 15*time.Second, cfg.Shell.LaunchTimeout)
	assert.Equal(t, "en", cfg.Shell.Locale)
	assert.Equal(t, uint32(5), cfg.Shell.SpawnBreaker.MaxFailures)
	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                     "9000",
		"HOST":                     "0.0.0.0",
		"ALLOWED_ORIGINS":          "http://a.test,http://b.test",
		"LOG_LEVEL":                "debug",
		"LOG_DEV":                  "true",
		"RATE_LIMIT_RPS":           "500",
		"RATE_LIMIT_BURST":         "1000",
		"RATE_LIMIT_ENABLED":       "false",
		"SHELL_APPS_DIRS":          "/opt/apps,/srv/apps",
		"SHELL_LAUNCH_TIMEOUT":     "30s",
		"SHELL_LOCALE":             "sv",
		"SHELL_SPAWN_MAX_FAILURES": "2",
		"SHELL_SPAWN_COOLDOWN":     "1m",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"/opt/apps", "/srv/apps"}, cfg.Shell.AppsDirs)
	assert.Equal(t, 30*time.Second, cfg.Shell.LaunchTimeout)
	assert.Equal(t, "sv", cfg.Shell.Locale)
	assert.Equal(t, uint32(2), cfg.Shell.SpawnBreaker.MaxFailures)
	assert.Equal(t, time.Minute, cfg.Shell.SpawnBreaker.Timeout)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"malformed duration", "SHELL_LAUNCH_TIMEOUT", "soon"},
		{"zero timeout", "SHELL_LAUNCH_TIMEOUT", "0s"},
		{"zero queue", "SHELL_QUEUE_SIZE", "0"},
		{"non-numeric rps", "RATE_LIMIT_RPS", "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}
