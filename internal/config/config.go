// Package config loads roster settings from a YAML file and the environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, ROSTER_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/roster/internal/realtime"
)

// Config is the full application configuration.
type Config struct {
	Database       DatabaseConfig `yaml:"database"`
	SessionFile    string         `yaml:"session_file" env:"ROSTER_SESSION_FILE"`
	LogLevel       string         `yaml:"log_level" env:"ROSTER_LOG_LEVEL"`
	RequestTimeout time.Duration  `yaml:"request_timeout" env:"ROSTER_REQUEST_TIMEOUT"`
}

// DatabaseConfig selects the realtime database backend.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"ROSTER_DB_DRIVER"`
	DSN             string        `yaml:"dsn" env:"ROSTER_DB_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"ROSTER_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"ROSTER_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"ROSTER_DB_CONN_MAX_LIFETIME"`
}

// Realtime converts to the realtime package's config.
func (d DatabaseConfig) Realtime() realtime.Config {
	return realtime.Config{
		Driver:          d.Driver,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}
}

// Dir is the default directory for the config file, database, and session.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".roster"
	}
	return filepath.Join(base, "roster")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() Config {
	dir := Dir()
	return Config{
		Database: DatabaseConfig{
			Driver: realtime.DriverSQLite,
			DSN:    filepath.Join(dir, "roster.db"),
		},
		SessionFile:    filepath.Join(dir, "session.json"),
		LogLevel:       "info",
		RequestTimeout: 10 * time.Second,
	}
}

// Load reads path (DefaultPath when empty) over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("no config file, using defaults", "path", path)
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case realtime.DriverSQLite, realtime.DriverPostgres:
	default:
		return fmt.Errorf("config: database.driver must be %q or %q, got %q",
			realtime.DriverSQLite, realtime.DriverPostgres, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}
	if c.SessionFile == "" {
		return errors.New("config: session_file is required")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("config: request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}
