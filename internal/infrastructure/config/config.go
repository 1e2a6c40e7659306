package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Shell     ShellConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8077"`
	Host            string        `envconfig:"HOST" default:"127.0.0.1"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ShellConfig holds app tracking configuration.
type ShellConfig struct {
	// AppsDirs overrides the manifest search path; empty means the XDG dirs
	AppsDirs      []string      `envconfig:"SHELL_APPS_DIRS"`
	LaunchTimeout time.Duration `envconfig:"SHELL_LAUNCH_TIMEOUT" default:"15s"`
	Locale        string        `envconfig:"SHELL_LOCALE" default:"en"`
	QueueSize     int           `envconfig:"SHELL_QUEUE_SIZE" default:"256"`
	CloseTimeout  time.Duration `envconfig:"SHELL_CLOSE_TIMEOUT" default:"2s"`
	SpawnBreaker  BreakerConfig
}

// BreakerConfig configures the spawn circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        `envconfig:"SHELL_SPAWN_MAX_FAILURES" default:"5"`
	Interval    time.Duration `envconfig:"SHELL_SPAWN_INTERVAL" default:"60s"`
	Timeout     time.Duration `envconfig:"SHELL_SPAWN_COOLDOWN" default:"30s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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

// Validate rejects values the daemon cannot run with
func (c *Config) Validate() error {
	if c.Shell.LaunchTimeout <= 0 {
		return fmt.Errorf("SHELL_LAUNCH_TIMEOUT must be positive, got %s", c.Shell.LaunchTimeout)
	}
	if c.Shell.QueueSize <= 0 {
		return fmt.Errorf("SHELL_QUEUE_SIZE must be positive, got %d", c.Shell.QueueSize)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimit.RequestsPerSecond)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8077",
			Host:            "127.0.0.1",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Shell: ShellConfig{
			LaunchTimeout: 15 * time.Second,
			Locale:        "en",
			QueueSize:     256,
			CloseTimeout:  2 * time.Second,
			SpawnBreaker: BreakerConfig{
				MaxFailures: 5,
				Interval:    60 * time.Second,
				Timeout:     30 * time.Second,
			},
		},
	}
}
