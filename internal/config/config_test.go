package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relay-labs/relay/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "https://api.runloop.ai", cfg.RunloopBaseURL)
	assert.Equal(t, "relay", cfg.ServiceName)
	assert.Equal(t, int64(1*1024*1024), cfg.MaxRequestBodyBytes)
	assert.True(t, cfg.SeedDemoData)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RELAY_PORT", "9090")
	t.Setenv("RELAY_READ_TIMEOUT", "5s")
	t.Setenv("RUNLOOP_API_KEY", "rl-test-key")
	t.Setenv("RELAY_SEED_DEMO_DATA", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "rl-test-key", cfg.RunloopAPIKey)
	assert.False(t, cfg.SeedDemoData)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("RELAY_PORT", "not-a-number")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestValidate_BadPort(t *testing.T) {
	cfg := config.Config{
		DatabaseURL:         "postgres://x",
		Port:                -1,
		MaxRequestBodyBytes: 1024,
		RunCreateRatePerMin: 10,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RELAY_PORT")
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := config.Config{Port: 8080, MaxRequestBodyBytes: 1024, RunCreateRatePerMin: 10}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
