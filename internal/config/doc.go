// Package config provides 12-factor configuration management for the daemon.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Socket: control socket path
//   - State: restart snapshot path
//   - Shell: spawned shell program and TERM value
//   - Redraw: force-redraw timing
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Listening on %s\n", cfg.Socket.Path)
//
// Environment Variables:
//   - PTYHOST_SOCKET, PTYHOST_STATE
//   - PTYHOST_SHELL, PTYHOST_TERM, PTYHOST_REDRAW_DELAY
//   - PTYHOST_LOG_LEVEL, PTYHOST_LOG_DEV
package config
