package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Cast.MaxRetries)
	assert.Equal(t, float32(0.1), cfg.Cast.Temperature)
	assert.True(t, cfg.Cast.IncludeExample)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "xmlcast:schema:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xmlcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
cast:
  max_retries: 5
  temperature: 0.7
redis:
  enabled: true
  addr: "redis.internal:6379"
  dial_timeout: 2s
log:
  level: debug
  development: true
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Cast.MaxRetries)
	assert.Equal(t, float32(0.7), cfg.Cast.Temperature)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)

	// Untouched sections keep their defaults.
	assert.Equal(t, "xmlcast", cfg.Telemetry.ServiceName)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := NewLoader().WithConfigPath("/does/not/exist.yaml").Load()
	require.Error(t, err)
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := writeConfigFile(t, "cast: [not a mapping")
	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "cast:\n  max_retries: 5\n")

	t.Setenv("XMLCAST_CAST_MAX_RETRIES", "7")
	t.Setenv("XMLCAST_REDIS_ADDR", "env.redis:6379")
	t.Setenv("XMLCAST_LOG_LEVEL", "warn")
	t.Setenv("XMLCAST_TELEMETRY_ENABLED", "true")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Cast.MaxRetries)
	assert.Equal(t, "env.redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestEnvPrefixIsConfigurable(t *testing.T) {
	t.Setenv("MYAPP_CAST_MAX_RETRIES", "9")
	t.Setenv("XMLCAST_CAST_MAX_RETRIES", "2")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Cast.MaxRetries)
}

func TestEnvMalformedValuesIgnored(t *testing.T) {
	t.Setenv("XMLCAST_CAST_MAX_RETRIES", "many")
	t.Setenv("XMLCAST_TELEMETRY_ENABLED", "certainly")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Cast.MaxRetries)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative retries", func(c *Config) { c.Cast.MaxRetries = -1 }, true},
		{"zero retries ok", func(c *Config) { c.Cast.MaxRetries = 0 }, false},
		{"rate limit enabled without rps", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.RPS = 0
		}, true},
		{"rate limit disabled without rps", func(c *Config) { c.RateLimit.RPS = 0 }, false},
		{"telemetry enabled without sample rate", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.SampleRate = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
