// Package config loads tracemap settings from files, environment and flags.
package config

import (
	"time"

	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/layout"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the complete application configuration.
type Config struct {
	Layout layout.Config `yaml:"layout" mapstructure:"layout"`
	Cache  CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Server ServerConfig  `yaml:"server" mapstructure:"server"`
	Watch  WatchConfig   `yaml:"watch" mapstructure:"watch"`
	Log    LogConfig     `yaml:"log" mapstructure:"log"`
}

// CacheConfig selects and configures the diagram cache.
type CacheConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend"`
	Dir      string `yaml:"dir" mapstructure:"dir"`
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	Metrics      bool          `yaml:"metrics" mapstructure:"metrics"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce is how long to wait after the last file event before
	// recomputing.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`

	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Layout: layout.DefaultConfig(),
		Cache: CacheConfig{
			Backend: BackendFile,
			Prefix:  "tracemap:",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxBodyBytes: 8 << 20,
			Metrics:      true,
		},
		Watch: WatchConfig{Debounce: 300 * time.Millisecond},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate checks values that the loaders cannot reject on their own.
func (c *Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown cache backend %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_body_bytes must be positive")
	}
	if c.Watch.Debounce < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "watch.debounce must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown log level %q (must be one of: debug, info, warn, error)", c.Log.Level)
	}
	return nil
}
