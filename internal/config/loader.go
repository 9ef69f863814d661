package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/JonMunkholm/emailclean/internal/csv"
	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), os.Getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Defaults returns the configuration with every default applied and the
// environment ignored.
func Defaults() *Config {
	cfg := &Config{}
	noEnv := func(string) string { return "" }
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), noEnv); err != nil {
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	return cfg
}

// envTag is the parsed form of a field's env, envAlt, default and required
// tags.
type envTag struct {
	names    []string
	fallback string
	required bool
}

func parseEnvTag(tag reflect.StructTag) (envTag, bool) {
	name := tag.Get("env")
	if name == "" {
		return envTag{}, false
	}
	et := envTag{
		names:    []string{name},
		fallback: tag.Get("default"),
		required: tag.Get("required") == "true",
	}
	if alt := tag.Get("envAlt"); alt != "" {
		et.names = append(et.names, alt)
	}
	return et, true
}

// resolve returns the first non-empty variable in names order, then the
// default. ok is false when nothing supplied a value.
func (et envTag) resolve(getenv func(string) string) (value string, ok bool, err error) {
	for _, n := range et.names {
		if v := getenv(n); v != "" {
			return v, true, nil
		}
	}
	if et.required {
		return "", false, fmt.Errorf("required environment variable %s is not set", et.names[0])
	}
	return et.fallback, et.fallback != "", nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// loadStruct fills the tagged fields of v, descending into nested sections.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	for i := range v.NumField() {
		sf, fv := v.Type().Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv, getenv); err != nil {
				return err
			}
			continue
		}

		et, tagged := parseEnvTag(sf.Tag)
		if !tagged {
			continue
		}
		value, ok, err := et.resolve(getenv)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := assign(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", et.names[0], value, err)
		}
	}
	return nil
}

// assign parses value into dst according to dst's type. Lists are comma
// separated with blanks dropped.
func assign(dst reflect.Value, value string) error {
	switch {
	case dst.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		dst.SetInt(int64(d))
	case dst.Kind() == reflect.String:
		dst.SetString(value)
	case dst.Kind() == reflect.Int, dst.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		dst.SetInt(n)
	case dst.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		dst.SetBool(b)
	case dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.String:
		var items []string
		for item := range strings.SplitSeq(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		dst.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type: %s", dst.Type())
	}
	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if strings.ContainsFunc(c.Server.Host, unicode.IsSpace) || strings.ContainsAny(c.Server.Host, "/@?#[]") {
		errs = append(errs, fmt.Sprintf("SERVER_HOST (%q) must be a hostname or IP address", c.Server.Host))
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

	// Store validation
	switch strings.ToLower(c.Store.Driver) {
	case history.DriverMemory:
	case history.DriverSQLite, history.DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Sprintf("HISTORY_DSN is required when HISTORY_DRIVER is %s", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Sprintf("HISTORY_DRIVER (%q) must be one of: memory, sqlite, postgres", c.Store.Driver))
	}
	if c.Store.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Store.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Store.MaxConns < c.Store.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Store.MaxConns, c.Store.MinConns))
	}
	if c.Store.Retention <= 0 {
		errs = append(errs, "RUN_RETENTION must be positive")
	}
	if c.Store.ListLimit <= 0 {
		errs = append(errs, "HISTORY_LIST_LIMIT must be positive")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	// Rules validation
	if _, err := pipeline.ParseNameRule(c.Rules.NameRule); err != nil {
		errs = append(errs, fmt.Sprintf("NAME_MA_RULE: %v", err))
	}
	if _, err := csv.ParseEncoding(c.Rules.Encoding); err != nil {
		errs = append(errs, fmt.Sprintf("INPUT_ENCODING: %v", err))
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// PoolConfig returns the PostgreSQL pool settings for the history store.
func (c *StoreConfig) PoolConfig() history.PoolConfig {
	return history.PoolConfig{
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
	}
}

// String returns a safe string representation of the config for logging.
// The history DSN is masked since it may carry credentials.
func (c *Config) String() string {
	dsn := ""
	if c.Store.DSN != "" {
		dsn = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Store: {Driver: %q, DSN: %s, Retention: %s}, ",
		c.Store.Driver, dsn, c.Store.Retention))
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %d, MaxConcurrent: %d, Timeout: %s}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.Timeout))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Rules: {File: %q, NameRule: %q, Encoding: %q}, ",
		c.Rules.File, c.Rules.NameRule, c.Rules.Encoding))
	b.WriteString(fmt.Sprintf("Security: {RequireAPIKey: %v, APIKeys: %d configured, TrustedProxies: %v}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Security.TrustedProxies))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
