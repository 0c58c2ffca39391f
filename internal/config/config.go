// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds all startup parameters. Values come from the environment,
// optionally seeded from a .env file in development.
type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// AppURL is the externally visible origin of this deployment; the
	// WebSocket upgrade accepts browser connections from this origin.
	AppURL string `env:"APP_URL" default:"http://localhost:8080"`

	// MaxConnections caps concurrent connections process-wide. It bounds
	// both admission at the listener and the hub registry.
	MaxConnections int `env:"MAX_CONNECTIONS" default:"10000"`

	// MaxConnectionsPerIP caps concurrent connections per client address.
	MaxConnectionsPerIP int `env:"MAX_CONNECTIONS_PER_IP" default:"32"`

	// ConnectionRate and ConnectionBurst shape the per-IP token bucket for
	// new connection attempts.
	ConnectionRate  float64 `env:"CONNECTION_RATE" default:"10"`
	ConnectionBurst int     `env:"CONNECTION_BURST" default:"20"`

	// SendBufferSize is the per-connection outbound delivery queue length.
	SendBufferSize int `env:"SEND_BUFFER_SIZE" default:"16"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug/info/warn/error, got %q", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}

	positives := map[string]int{
		"MAX_CONNECTIONS":        cfg.MaxConnections,
		"MAX_CONNECTIONS_PER_IP": cfg.MaxConnectionsPerIP,
		"CONNECTION_BURST":       cfg.ConnectionBurst,
		"SEND_BUFFER_SIZE":       cfg.SendBufferSize,
	}
	for name, value := range positives {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}

	if cfg.ConnectionRate <= 0 {
		return fmt.Errorf("CONNECTION_RATE must be positive, got %v", cfg.ConnectionRate)
	}

	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
