// Package config loads the server's settings from environment variables,
// applies defaults, and validates everything on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Table    TableConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// DB_URL is accepted as a fallback.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectAttempts is how often startup pings the database before
	// giving up (default: 5)
	ConnectAttempts int `env:"DB_CONNECT_ATTEMPTS" default:"5"`
}

// TableConfig holds defaults applied to every registered table.
type TableConfig struct {
	// CSSClass is the class of the rendered <table> element (default: dimtable)
	CSSClass string `env:"TABLE_CSS_CLASS" default:"dimtable"`

	// Editable turns input cells on; false renders every table read-only
	Editable bool `env:"TABLE_EDITABLE" default:"true"`

	// SaveTimeout bounds a single save, validation and writes included (default: 30s)
	SaveTimeout time.Duration `env:"TABLE_SAVE_TIMEOUT" default:"30s"`

	// MaxConcurrentSaves bounds saves running at once across all tables (default: 4)
	MaxConcurrentSaves int `env:"TABLE_MAX_CONCURRENT_SAVES" default:"4"`

	// SaveWait is how long a save waits for a slot before failing (default: 10s)
	SaveWait time.Duration `env:"TABLE_SAVE_WAIT" default:"10s"`

	// DateWindowDays is how many day columns date-keyed tables show (default: 7)
	DateWindowDays int `env:"TABLE_DATE_WINDOW_DAYS" default:"7"`

	// StartDate pins the first day column (YYYY-MM-DD); empty means today
	StartDate string `env:"TABLE_START_DATE"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit per IP for all requests (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SaveLimit is the limit per IP for table saves (default: 20)
	SaveLimit int `env:"RATE_LIMIT_SAVE" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards the JSON save endpoint with X-API-Key
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

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Start returns the first day column of date-keyed tables.
func (c *TableConfig) Start(now time.Time) time.Time {
	if c.StartDate != "" {
		if t, err := time.Parse(time.DateOnly, c.StartDate); err == nil {
			return t
		}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
