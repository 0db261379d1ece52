package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables, applies defaults
// for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, errors.Wrap(err, "config load")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation")
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct populates tagged fields of v and its nested structs.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if f.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv); err != nil {
				return err
			}
			continue
		}

		envName := f.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := lookup(envName, f.Tag.Get("envAlt"))
		if !ok {
			if f.Tag.Get("required") == "true" {
				return errors.Newf("required environment variable %s is not set", envName)
			}
			value = f.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fv, value); err != nil {
			return errors.Wrapf(err, "invalid value for %s=%q", envName, value)
		}
	}

	return nil
}

// lookup returns the first non-empty variable of name and alt.
func lookup(name, alt string) (string, bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	return "", false
}

func setField(fv reflect.Value, value string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(value)

	case reflect.Int, reflect.Int64:
		if fv.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return errors.Wrap(err, "invalid duration")
			}
			fv.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid integer")
		}
		fv.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrap(err, "invalid boolean")
		}
		fv.SetBool(b)

	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return errors.Newf("unsupported slice type: %s", fv.Type().Elem().Kind())
		}
		fv.Set(reflect.ValueOf(splitList(value)))

	default:
		return errors.Newf("unsupported field type: %s", fv.Kind())
	}

	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.ConnectAttempts <= 0 {
		errs = append(errs, "DB_CONNECT_ATTEMPTS must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Table.CSSClass == "" {
		errs = append(errs, "TABLE_CSS_CLASS must not be empty")
	}
	if c.Table.SaveTimeout <= 0 {
		errs = append(errs, "TABLE_SAVE_TIMEOUT must be positive")
	}
	if c.Table.MaxConcurrentSaves <= 0 {
		errs = append(errs, "TABLE_MAX_CONCURRENT_SAVES must be positive")
	}
	if c.Table.SaveWait <= 0 {
		errs = append(errs, "TABLE_SAVE_WAIT must be positive")
	}
	if c.Table.DateWindowDays <= 0 || c.Table.DateWindowDays > 31 {
		errs = append(errs, fmt.Sprintf("TABLE_DATE_WINDOW_DAYS (%d) must be 1-31", c.Table.DateWindowDays))
	}
	if c.Table.StartDate != "" {
		if _, err := time.Parse(time.DateOnly, c.Table.StartDate); err != nil {
			errs = append(errs, fmt.Sprintf("TABLE_START_DATE (%q) must be YYYY-MM-DD", c.Table.StartDate))
		}
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.SaveLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_SAVE must be positive when rate limiting is enabled")
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.Newf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns the config for logging with the database URL masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Table: {CSSClass: %q, Editable: %v, DateWindowDays: %d}, ",
		c.Table.CSSClass, c.Table.Editable, c.Table.DateWindowDays)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, SaveLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.SaveLimit)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
