// Package config loads the register's settings from environment variables.
// Unset values fall back to defaults and the result is validated once on
// startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Store    StoreConfig
	Export   ExportConfig
	Server   ServerConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// StoreConfig holds the subject store settings.
type StoreConfig struct {
	// Path is the store file, created on first use (default: db.txt)
	Path string `env:"SUBJECTS_STORE_PATH" envAlt:"DB_PATH" default:"db.txt"`

	// Sync makes every write fsync the file (default: false)
	Sync bool `env:"SUBJECTS_STORE_SYNC" default:"false"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	// Path is the default export target (default: export.csv)
	Path string `env:"SUBJECTS_EXPORT_PATH" default:"export.csv"`
}

// ServerConfig holds HTTP server settings for the form.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds the graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// RequestTimeout is the per-request middleware timeout (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// SecurityConfig holds access control settings for the HTTP server.
type SecurityConfig struct {
	// RequireAPIKey enables X-API-Key authentication on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// IsLoopback reports whether Host only accepts local connections.
func (c *ServerConfig) IsLoopback() bool {
	if strings.EqualFold(c.Host, "localhost") {
		return true
	}
	ip := net.ParseIP(c.Host)
	return ip != nil && ip.IsLoopback()
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
