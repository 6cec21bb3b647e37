package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with a custom variable source.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration and panics on error. Use only in main.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

var durationType = reflect.TypeOf(time.Duration(0))

// loadStruct populates tagged fields, recursing into nested structs.
func loadStruct(v reflect.Value, lookup LookupFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv, lookup); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value := get(lookup, name)
		if value == "" {
			if alt := field.Tag.Get("envAlt"); alt != "" {
				value = get(lookup, alt)
			}
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

func get(lookup LookupFunc, key string) string {
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

// setField parses value into a string, integer, duration, bool or
// comma-separated string slice field.
func setField(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(value)

	case field.Kind() == reflect.Int, field.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var out []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string
	check := func(ok bool, msg string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(msg, args...))
		}
	}

	check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	check(c.Server.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	check(c.Server.RequestTimeout > 0, "SERVER_REQUEST_TIMEOUT must be positive")

	if c.Database.Enabled() {
		check(c.Database.MaxConns > 0, "DB_MAX_CONNS must be positive")
		check(c.Database.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
		check(c.Database.MaxConns >= c.Database.MinConns,
			"DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	check(c.Upload.MaxFileSize > 0, "UPLOAD_MAX_FILE_SIZE must be positive")
	check(c.Upload.MaxConcurrent > 0, "UPLOAD_MAX_CONCURRENT must be positive")
	check(c.Upload.MaxWaitTime > 0, "UPLOAD_MAX_WAIT_TIME must be positive")

	check(c.Session.TTL > 0, "SESSION_TTL must be positive")
	check(c.Session.SweepInterval > 0, "SESSION_SWEEP_INTERVAL must be positive")
	check(c.Session.CookieName != "", "SESSION_COOKIE_NAME must not be empty")

	if c.Rate.Enabled {
		check(c.Rate.RequestsPerMinute > 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		check(c.Rate.UploadLimit > 0, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	check(!c.Security.RequireAPIKey || len(c.Security.APIKeys) > 0,
		"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one key or disable the check")

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

	check(!c.Telemetry.Enabled || c.Telemetry.ServiceName != "", "OTEL_SERVICE_NAME must be set when OTEL_ENABLED is true")

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String renders the config for logging with the database URL masked.
func (c *Config) String() string {
	db := "disabled"
	if c.Database.Enabled() {
		db = "[MASKED]"
	}
	return fmt.Sprintf(
		"Config{Server: {Addr: %q}, Database: {URL: %s, MaxConns: %d}, "+
			"Upload: {MaxFileSize: %d, MaxConcurrent: %d}, Session: {TTL: %s}, "+
			"Rate: {Enabled: %v, RequestsPerMinute: %d, UploadLimit: %d}, "+
			"Security: {RequireAPIKey: %v, APIKeys: %d}, Logging: {Level: %q, Format: %q}, "+
			"Telemetry: {Enabled: %v}, Audit: {FilePath: %q}}",
		c.Server.Addr(), db, c.Database.MaxConns,
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Session.TTL,
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.UploadLimit,
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Logging.Level, c.Logging.Format,
		c.Telemetry.Enabled, c.Audit.FilePath,
	)
}
