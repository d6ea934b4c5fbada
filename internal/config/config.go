package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Transport selects how MCP messages reach the server.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

const (
	tokenPrefix    = "dapi"
	minTokenLength = 10
)

var validLogLevels = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

// Config holds the server configuration. It is built once at startup and
// passed by reference to the components that need it.
type Config struct {
	// Databricks API
	DatabricksHost  string `env:"DATABRICKS_HOST"`
	DatabricksToken string `env:"DATABRICKS_TOKEN"`

	// Server
	Transport  string `env:"TRANSPORT" envDefault:"stdio"`
	ServerHost string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8000"`
	Debug      bool   `env:"DEBUG" envDefault:"false"`

	// Outbound requests
	RequestTimeoutSeconds int `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"30"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogDir        string `env:"LOG_DIR" envDefault:"logs"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv parses the environment without touching .env files.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: ""}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.DatabricksHost = strings.TrimRight(strings.TrimSpace(c.DatabricksHost), "/")
	c.DatabricksToken = strings.TrimSpace(c.DatabricksToken)
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
}

// Validate checks every setting. The server refuses to start on error.
func (c *Config) Validate() error {
	if err := c.validateHost(); err != nil {
		return err
	}
	if err := c.validateToken(); err != nil {
		return err
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 0 and 65535, got %d", c.ServerPort)
	}
	if c.Transport != TransportStdio && c.Transport != TransportSSE {
		return fmt.Errorf("TRANSPORT must be one of: %s, %s (got %q)", TransportStdio, TransportSSE, c.Transport)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: DEBUG, INFO, WARNING, ERROR, CRITICAL (got %q)", c.LogLevel)
	}
	if c.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be at least 1, got %d", c.RequestTimeoutSeconds)
	}
	return nil
}

func (c *Config) validateHost() error {
	if c.DatabricksHost == "" {
		return fmt.Errorf("DATABRICKS_HOST is required")
	}
	if !strings.HasPrefix(c.DatabricksHost, "https://") && !strings.HasPrefix(c.DatabricksHost, "http://") {
		return fmt.Errorf("DATABRICKS_HOST must start with http:// or https://")
	}
	parsed, err := url.Parse(c.DatabricksHost)
	if err != nil {
		return fmt.Errorf("invalid DATABRICKS_HOST URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid DATABRICKS_HOST URL: missing host")
	}
	return nil
}

func (c *Config) validateToken() error {
	if c.DatabricksToken == "" {
		return fmt.Errorf("DATABRICKS_TOKEN cannot be empty")
	}
	if !strings.HasPrefix(c.DatabricksToken, tokenPrefix) {
		return fmt.Errorf("DATABRICKS_TOKEN must start with %q", tokenPrefix)
	}
	if len(c.DatabricksToken) < minTokenLength {
		return fmt.Errorf("DATABRICKS_TOKEN is too short")
	}
	return nil
}

// RequestTimeout returns the default outbound request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ListenAddr returns the SSE listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
