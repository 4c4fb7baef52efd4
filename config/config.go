/*
Package config loads server configuration.

SOURCES, in order of precedence (highest wins):
  1. Environment variables
  2. TOML config file (optional, -config flag)
  3. Compiled defaults

USAGE:
  cfg, err := config.Load("./worklog.toml")  // "" skips the file
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env"
)

type Config struct {
	Server ServerConfig `toml:"server"`
	DB     DBConfig     `toml:"db"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	Host            string        `toml:"host" env:"SERVER_HOST"`
	Port            int           `toml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `toml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

type DBConfig struct {
	// Path is the SQLite database file; ":memory:" for ephemeral runs.
	Path string `toml:"path" env:"DB_PATH"`
}

type LogConfig struct {
	// Level: trace, debug, info, warn, error.
	Level string `toml:"level" env:"LOG_LEVEL"`
	// Format: json or text.
	Format string `toml:"format" env:"LOG_FORMAT"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		},
		DB:  DBConfig{Path: "worklog.db"},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, an optional TOML file,
// and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	for _, target := range []any{&cfg.Server, &cfg.DB, &cfg.Log} {
		if err := env.Parse(target); err != nil {
			return nil, fmt.Errorf("failed to parse environment: %w", err)
		}
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
