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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
	assert.Equal(t, 20.0, cfg.Server.HTTP.RateLimit)
	assert.Equal(t, 40, cfg.Server.HTTP.RateBurst)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 900*time.Second, cfg.Simulation.SessionBudget)
	assert.Equal(t, 2*time.Hour, cfg.Simulation.StateTTL)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  http:
    address: ":9000"
    rate_limit: 5
logging:
  level: debug
  format: console
simulation:
  session_budget: 600s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTP.Address)
	assert.Equal(t, 5.0, cfg.Server.HTTP.RateLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 600*time.Second, cfg.Simulation.SessionBudget)
	// Untouched keys keep their defaults.
	assert.Equal(t, 40, cfg.Server.HTTP.RateBurst)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SIM_SERVER_HTTP_ADDRESS", ":7070")
	t.Setenv("SIM_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.HTTP.Address)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http:\n    rate_limit: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
