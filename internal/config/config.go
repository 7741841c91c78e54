// Package config loads server configuration from command-line flags,
// environment variables, an optional .env file and defaults, in that order
// of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Server   ServerConfig
	Auth     AuthConfig
	Shelf    ShelfConfig
	Activity ActivityConfig
	Catalog  CatalogConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// DataConfig holds the location of on-disk state: the SQLite database,
// the Badger shelf store, the search index and the auth key.
type DataConfig struct {
	Path string `env:"DATA_PATH"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout        time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout       time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout        time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitPerMinute int           `env:"HTTP_RATE_LIMIT" envDefault:"300"` // per client IP
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	AccessTokenDuration  time.Duration `env:"ACCESS_TOKEN_DURATION" envDefault:"15m"`
	RefreshTokenDuration time.Duration `env:"REFRESH_TOKEN_DURATION" envDefault:"720h"`
	LoginRatePerMinute   int           `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
}

// ShelfConfig holds shelf behaviour settings.
type ShelfConfig struct {
	SettleDelay time.Duration `env:"SHELF_SETTLE_DELAY" envDefault:"3s"`
	DemoSeed    bool          `env:"SHELF_DEMO_SEED" envDefault:"false"`
}

// ActivityConfig tunes the activity pipeline.
type ActivityConfig struct {
	Buffer  int `env:"ACTIVITY_BUFFER" envDefault:"256"`
	Retries int `env:"ACTIVITY_RETRIES" envDefault:"3"`
}

// CatalogConfig points at an optional YAML catalog imported on startup
// when the catalog is empty.
type CatalogConfig struct {
	Path string `env:"CATALOG_PATH"`
}

// LoadConfig loads configuration for the server process from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds configuration with precedence:
// 1. Command-line flags in args (highest priority).
// 2. Environment variables.
// 3. The .env file named by ENV_FILE (default ".env"), which never overrides the environment.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if cfg.Catalog.Path != "" {
		p, err := expandPath(cfg.Catalog.Path, "")
		if err != nil {
			return nil, fmt.Errorf("invalid catalog path: %w", err)
		}
		cfg.Catalog.Path = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// parseFlags registers flags with the environment-derived values as
// defaults, so only flags actually passed override them.
func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("shelfwise", flag.ContinueOnError)

	fs.StringVar(&c.App.Environment, "env", c.App.Environment, "Environment (development, staging, production)")
	fs.StringVar(&c.Logger.Level, "log-level", c.Logger.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.Data.Path, "data-path", c.Data.Path, "Directory for databases, search index and auth key")

	fs.StringVar(&c.Server.Port, "port", c.Server.Port, "Server port")
	fs.DurationVar(&c.Server.ReadTimeout, "read-timeout", c.Server.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&c.Server.WriteTimeout, "write-timeout", c.Server.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&c.Server.IdleTimeout, "idle-timeout", c.Server.IdleTimeout, "HTTP idle timeout")
	fs.IntVar(&c.Server.RateLimitPerMinute, "rate-limit", c.Server.RateLimitPerMinute, "Requests per minute per client IP")

	fs.DurationVar(&c.Auth.AccessTokenDuration, "access-token-duration", c.Auth.AccessTokenDuration, "Access token lifetime")
	fs.DurationVar(&c.Auth.RefreshTokenDuration, "refresh-token-duration", c.Auth.RefreshTokenDuration, "Refresh token lifetime")

	fs.DurationVar(&c.Shelf.SettleDelay, "settle-delay", c.Shelf.SettleDelay, "Delay before a new account is marked settled")
	fs.BoolVar(&c.Shelf.DemoSeed, "demo-seed", c.Shelf.DemoSeed, "Seed example shelves for existing users without shelf data")

	fs.StringVar(&c.Catalog.Path, "catalog", c.Catalog.Path, "YAML catalog to import when the catalog is empty")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

var (
	validEnvironments = []string{"development", "staging", "production"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
)

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}
	if !slices.Contains(validEnvironments, c.App.Environment) {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if c.Data.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Auth.AccessTokenDuration <= 0 || c.Auth.RefreshTokenDuration <= 0 {
		return errors.New("token durations must be positive")
	}
	if c.Shelf.SettleDelay < 0 {
		return fmt.Errorf("invalid settle delay %s", c.Shelf.SettleDelay)
	}
	if c.Server.RateLimitPerMinute <= 0 || c.Auth.LoginRatePerMinute <= 0 {
		return errors.New("rate limits must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data directory to ~/Shelfwise/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Data.Path, filepath.Join(homeDir, "Shelfwise", "data"))
	if err != nil {
		return err
	}
	c.Data.Path = expanded
	return nil
}
