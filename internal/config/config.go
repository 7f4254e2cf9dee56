package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Socket  SocketConfig
	State   StateConfig
	Shell   ShellConfig
	Redraw  RedrawConfig
	Logging LogConfig
}

// SocketConfig holds control socket configuration.
type SocketConfig struct {
	Path string `envconfig:"PTYHOST_SOCKET" default:"/tmp/ptyhost.sock"`
}

// StateConfig holds restart snapshot configuration.
type StateConfig struct {
	Path string `envconfig:"PTYHOST_STATE" default:"/tmp/ptyhost-restart-state.json"`
}

// ShellConfig holds spawned-shell configuration.
type ShellConfig struct {
	// Program overrides $SHELL when set.
	Program string `envconfig:"PTYHOST_SHELL" default:""`
	Term    string `envconfig:"PTYHOST_TERM" default:"xterm-256color"`
}

// RedrawConfig holds the force-redraw timing configuration.
type RedrawConfig struct {
	// Delay is how long child programs get to process the intermediate
	// shrunken window size before it is restored.
	Delay time.Duration `envconfig:"PTYHOST_REDRAW_DELAY" default:"50ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"PTYHOST_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"PTYHOST_LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Socket: SocketConfig{
			Path: "/tmp/ptyhost.sock",
		},
		State: StateConfig{
			Path: "/tmp/ptyhost-restart-state.json",
		},
		Shell: ShellConfig{
			Term: "xterm-256color",
		},
		Redraw: RedrawConfig{
			Delay: 50 * time.Millisecond,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
