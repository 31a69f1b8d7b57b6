// Package config loads the daemon configuration. Settings come from an
// optional YAML file overlaid by environment variables; every variable has an
// AIDIS_-prefixed form that takes precedence over its legacy unprefixed form.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Paths     PathsConfig     `yaml:"paths"`

	// Opt-out flags for startup steps.
	SkipDatabase   bool `yaml:"skip_database"`
	SkipBackground bool `yaml:"skip_background"`
	SkipStdio      bool `yaml:"skip_stdio"`
	Debug          bool `yaml:"debug"`
}

// ServerConfig controls the HTTP listener and request handling.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	PreferredPort   int           `yaml:"preferred_port"`
	ServiceName     string        `yaml:"service_name"`
	ToolPrefix      string        `yaml:"tool_prefix"`
	ToolTimeout     time.Duration `yaml:"tool_timeout"`
	HealthTimeout   time.Duration `yaml:"health_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AcquireTimeout  time.Duration `yaml:"acquire_timeout"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// EmbeddingConfig controls the embedding provider.
type EmbeddingConfig struct {
	Dimension int `yaml:"dimension"`
	CacheSize int `yaml:"cache_size"`
}

// PathsConfig locates the daemon's persistent state files.
type PathsConfig struct {
	PIDFile      string `yaml:"pid_file"`
	PortRegistry string `yaml:"port_registry"`
}

// Default returns the baseline configuration before file/env overlays.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			PreferredPort:   8524,
			ServiceName:     "aidis-mcp",
			ToolPrefix:      "aidis",
			ToolTimeout:     30 * time.Second,
			HealthTimeout:   2 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "aidis",
			User:            "aidis",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AcquireTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Embedding: EmbeddingConfig{
			Dimension: 384,
			CacheSize: 1024,
		},
		Paths: PathsConfig{
			PIDFile:      "./run/aidis.pid",
			PortRegistry: "./run/ports.json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() {
	c.SkipDatabase = envBool("AIDIS_SKIP_DATABASE", "SKIP_DATABASE", c.SkipDatabase)
	c.SkipBackground = envBool("AIDIS_SKIP_BACKGROUND", "SKIP_BACKGROUND", c.SkipBackground)
	c.SkipStdio = envBool("AIDIS_SKIP_STDIO", "SKIP_STDIO", c.SkipStdio)
	c.Debug = envBool("AIDIS_MCP_DEBUG", "MCP_DEBUG", c.Debug)

	c.Logging.Level = envString("AIDIS_LOG_LEVEL", "LOG_LEVEL", c.Logging.Level)

	c.Database.Host = envString("AIDIS_DATABASE_HOST", "DATABASE_HOST", c.Database.Host)
	c.Database.Port = envInt("AIDIS_DATABASE_PORT", "DATABASE_PORT", c.Database.Port)
	c.Database.Name = envString("AIDIS_DATABASE_NAME", "DATABASE_NAME", c.Database.Name)
	c.Database.User = envString("AIDIS_DATABASE_USER", "DATABASE_USER", c.Database.User)
	c.Database.Password = envString("AIDIS_DATABASE_PASSWORD", "DATABASE_PASSWORD", c.Database.Password)

	c.Paths.PIDFile = envString("AIDIS_PID_FILE", "PID_FILE", c.Paths.PIDFile)
	c.Paths.PortRegistry = envString("AIDIS_PORT_REGISTRY", "PORT_REGISTRY", c.Paths.PortRegistry)
	c.Server.ToolPrefix = envString("AIDIS_TOOL_PREFIX", "TOOL_PREFIX", c.Server.ToolPrefix)
	c.Server.PreferredPort = envInt("AIDIS_HTTP_PORT", "HTTP_PORT", c.Server.PreferredPort)
}

// envString returns the preferred env var, falling back to the legacy form.
func envString(preferred, legacy, def string) string {
	if v := os.Getenv(preferred); v != "" {
		return v
	}
	if v := os.Getenv(legacy); v != "" {
		return v
	}
	return def
}

func envInt(preferred, legacy string, def int) int {
	if v := envString(preferred, legacy, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(preferred, legacy string, def bool) bool {
	if v := envString(preferred, legacy, ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
