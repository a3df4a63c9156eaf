// Package config provides environment-based configuration for the browsing client.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the browsing client.
type Config struct {
	// Backend
	APIURL         string        `yaml:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Browse server
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Snapshot cache. An empty path disables it.
	CachePath   string        `yaml:"cache_path"`
	CacheMaxAge time.Duration `yaml:"cache_max_age"`

	VersionTTL time.Duration `yaml:"version_ttl"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// DefaultFields are the item fields every row of a line table carries.
	DefaultFields []string `yaml:"default_fields"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		APIURL:          "http://localhost:8000",
		RequestTimeout:  30 * time.Second,
		Host:            "127.0.0.1",
		Port:            8080,
		ShutdownTimeout: 10 * time.Second,
		CachePath:       defaultCachePath(),
		CacheMaxAge:     7 * 24 * time.Hour,
		VersionTTL:      5 * time.Minute,
		LogLevel:        "info",
		LogFormat:       "text",
		DefaultFields:   []string{"slug", "created_at", "saved_at"},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CASCADE_CONFIG (or path, when not empty), and environment variables, in
// that order of precedence from lowest to highest.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("CASCADE_CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile overlays the values set in a YAML file onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIURL = getEnv("CASCADE_API_URL", c.APIURL)
	c.RequestTimeout = getDurationEnv("CASCADE_REQUEST_TIMEOUT", c.RequestTimeout)
	c.Host = getEnv("CASCADE_UI_HOST", c.Host)
	c.Port = getIntEnv("CASCADE_UI_PORT", c.Port)
	c.ShutdownTimeout = getDurationEnv("CASCADE_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.CachePath = getEnv("CASCADE_CACHE_PATH", c.CachePath)
	c.CacheMaxAge = getDurationEnv("CASCADE_CACHE_MAX_AGE", c.CacheMaxAge)
	c.VersionTTL = getDurationEnv("CASCADE_VERSION_TTL", c.VersionTTL)
	c.LogLevel = getEnv("CASCADE_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("CASCADE_LOG_FORMAT", c.LogFormat)
	c.DefaultFields = getListEnv("CASCADE_DEFAULT_FIELDS", c.DefaultFields)

	// Disables the snapshot cache.
	if os.Getenv("CASCADE_CACHE_PATH") == "off" {
		c.CachePath = ""
	}
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("CASCADE_API_URL must be an http(s) URL, got %q", c.APIURL))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("CASCADE_UI_PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CASCADE_REQUEST_TIMEOUT must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CASCADE_SHUTDOWN_TIMEOUT must be positive"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("CASCADE_LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Addr returns the browse server listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// JSONLogs reports whether logs are written as JSON.
func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json"
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cascade-ui", "snapshots.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, f := range strings.Split(value, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
