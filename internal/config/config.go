// Package config loads layered TOML configuration with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/sift/pkg/database"
	"github.com/JaimeStill/sift/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvSiftEnv             = "SIFT_ENV"
	EnvSiftShutdownTimeout = "SIFT_SHUTDOWN_TIMEOUT"
	EnvSiftVersion         = "SIFT_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "SIFT_DB_HOST",
	Port:            "SIFT_DB_PORT",
	Name:            "SIFT_DB_NAME",
	User:            "SIFT_DB_USER",
	Password:        "SIFT_DB_PASSWORD",
	SSLMode:         "SIFT_DB_SSL_MODE",
	MaxOpenConns:    "SIFT_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "SIFT_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "SIFT_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "SIFT_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Enabled:          "SIFT_STORAGE_ENABLED",
	ContainerName:    "SIFT_STORAGE_CONTAINER_NAME",
	ConnectionString: "SIFT_STORAGE_CONNECTION_STRING",
	MaxListSize:      "SIFT_STORAGE_MAX_LIST_SIZE",
}

// Config is the root configuration for the sift service. It is built once
// by Load and passed explicitly to every constructor.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	Scanner         ScannerConfig   `toml:"scanner"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the SIFT_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvSiftEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads config.toml from the working directory. See LoadFrom.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads the base config in dir (if present), applies any
// environment overlay, and finalizes all values. If no config.toml exists,
// defaults and environment variables provide all configuration.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{}

	if base := filepath.Join(dir, BaseConfigFile); fileExists(base) {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Scanner.Merge(&overlay.Scanner)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Scanner.Finalize(); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	return nil
}
func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvSiftShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvSiftVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvSiftEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
