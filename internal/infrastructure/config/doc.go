// Package config provides 12-factor configuration for shelld.
//
// Configuration is loaded from environment variables with defaults.
// Command-line flags in cmd/shelld override individual values.
//
// Configuration Sections:
//   - Server: HTTP listener, allowed origins, shutdown grace
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Shell: manifest dirs, launch timeout, locale, spawn breaker
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST, ALLOWED_ORIGINS, SHUTDOWN_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SHELL_APPS_DIRS, SHELL_LAUNCH_TIMEOUT, SHELL_LOCALE, SHELL_QUEUE_SIZE
//   - SHELL_CLOSE_TIMEOUT, SHELL_SPAWN_MAX_FAILURES, SHELL_SPAWN_INTERVAL,
//     SHELL_SPAWN_COOLDOWN
package config
