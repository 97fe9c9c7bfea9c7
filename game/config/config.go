package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the server
type Config struct {
	Host          string        `env:"HOST" envDefault:"localhost"`
	Port          int           `env:"PORT" envDefault:"5002"`
	SearchDepth   int           `env:"SEARCH_DEPTH" envDefault:"5"`
	WorkerTimeout time.Duration `env:"WORKER_TIMEOUT" envDefault:"2m"`
	QueueLimit    int           `env:"QUEUE_LIMIT" envDefault:"256"`
	MaxPlies      int           `env:"MAX_PLIES" envDefault:"200"`
	LoadFile      string        `env:"LOAD_FILE"`
	StaticDir     string        `env:"STATIC_DIR" envDefault:"./static"`
	Debug         bool          `env:"DEBUG" envDefault:"false"`
	Ngrok         NgrokConfig
}

// NgrokConfig holds the optional tunnel settings
type NgrokConfig struct {
	Enabled   bool   `env:"NGROK_ENABLED" envDefault:"false"`
	AuthToken string `env:"NGROK_AUTHTOKEN"`
	Domain    string `env:"NGROK_DOMAIN"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks the limits the session layer relies on.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.SearchDepth < 1 {
		return fmt.Errorf("%w: search depth must be at least 1, got %d", ErrInvalidConfig, c.SearchDepth)
	}
	if c.WorkerTimeout <= 0 {
		return fmt.Errorf("%w: worker timeout must be positive, got %s", ErrInvalidConfig, c.WorkerTimeout)
	}
	if c.QueueLimit < 1 {
		return fmt.Errorf("%w: queue limit must be at least 1, got %d", ErrInvalidConfig, c.QueueLimit)
	}
	if c.MaxPlies < 0 {
		return fmt.Errorf("%w: max plies must not be negative, got %d", ErrInvalidConfig, c.MaxPlies)
	}
	return nil
}

// Address returns the listen address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
