package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "/tmp/ptyhost.sock", cfg.Socket.Path)
	assert.Equal(t, "/tmp/ptyhost-restart-state.json", cfg.State.Path)
	assert.Equal(t, "", cfg.Shell.Program)
	assert.Equal(t, "xterm-256color", cfg.Shell.Term)
	assert.Equal(t, 50*time.Millisecond, cfg.Redraw.Delay)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/tmp/ptyhost.sock", cfg.Socket.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PTYHOST_SOCKET":       "/run/user/1000/ptyhost.sock",
		"PTYHOST_STATE":        "/run/user/1000/ptyhost-state.json",
		"PTYHOST_SHELL":        "/bin/zsh",
		"PTYHOST_TERM":         "xterm",
		"PTYHOST_REDRAW_DELAY": "100ms",
		"PTYHOST_LOG_LEVEL":    "debug",
		"PTYHOST_LOG_DEV":      "true",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/run/user/1000/ptyhost.sock", cfg.Socket.Path)
	assert.Equal(t, "/run/user/1000/ptyhost-state.json", cfg.State.Path)
	assert.Equal(t, "/bin/zsh", cfg.Shell.Program)
	assert.Equal(t, "xterm", cfg.Shell.Term)
	assert.Equal(t, 100*time.Millisecond, cfg.Redraw.Delay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	err := os.Setenv("PTYHOST_SOCKET", "/tmp/other.sock")
	require.NoError(t, err)
	defer os.Unsetenv("PTYHOST_SOCKET")

	err = os.Setenv("PTYHOST_LOG_LEVEL", "warn")
	require.NoError(t, err)
	defer os.Unsetenv("PTYHOST_LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "/tmp/other.sock", cfg.Socket.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, "/tmp/ptyhost-restart-state.json", cfg.State.Path)
	assert.Equal(t, 50*time.Millisecond, cfg.Redraw.Delay)
}
