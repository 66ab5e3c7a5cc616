// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Progress backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var (
	backends  = []string{BackendFile, BackendMemory, BackendRedis, BackendPostgres}
	logLevels = []string{"debug", "info", "warn", "error"}
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Content  ContentConfig
	Progress ProgressConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
	// AllowedOrigins are extra hosts allowed to open the player socket.
	AllowedOrigins []string
}

// ContentConfig says where curriculum, lessons and exercises are read from.
type ContentConfig struct {
	Path string
}

// ProgressConfig selects where the learner's progress record lives.
type ProgressConfig struct {
	Backend string
	Key     string
	Dir     string // file backend only
	Migrate bool   // postgres backend only
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
type CacheConfig struct {
	URL string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("LEARN_SERVER_PORT", 8080),
			Host:           envStr("LEARN_SERVER_HOST", "0.0.0.0"),
			AllowedOrigins: envList("LEARN_SERVER_ALLOWED_ORIGINS"),
		},
		Content: ContentConfig{
			Path: envStr("LEARN_CONTENT_PATH", "./content"),
		},
		Progress: ProgressConfig{
			Backend: strings.ToLower(envStr("LEARN_PROGRESS_BACKEND", BackendFile)),
			Key:     envStr("LEARN_PROGRESS_KEY", "userProgress"),
			Dir:     envStr("LEARN_PROGRESS_DIR", "./data"),
			Migrate: envBool("LEARN_PROGRESS_MIGRATE", true),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 5),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", "redis://localhost:6379"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envStr("LEARN_LOG_LEVEL", "info")),
			Format: strings.ToLower(envStr("LEARN_LOG_FORMAT", "json")),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !slices.Contains(backends, c.Progress.Backend) {
		return fmt.Errorf("LEARN_PROGRESS_BACKEND must be one of %s, got %q", strings.Join(backends, ", "), c.Progress.Backend)
	}

	switch c.Progress.Backend {
	case BackendFile:
		if c.Progress.Dir == "" {
			return fmt.Errorf("LEARN_PROGRESS_DIR is required for the file backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("LEARN_DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis:
		if c.Cache.URL == "" {
			return fmt.Errorf("LEARN_CACHE_URL is required for the redis backend")
		}
	}

	if c.Content.Path == "" {
		return fmt.Errorf("LEARN_CONTENT_PATH is required")
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("LEARN_LOG_LEVEL must be one of %s, got %q", strings.Join(logLevels, ", "), c.Log.Level)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
