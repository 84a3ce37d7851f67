// Package config loads and validates the relay's configuration with koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultDir is where Load looks for base.yaml and the profile file.
const DefaultDir = "configs"

// Defaults that other packages and tests refer to by name.
const (
	DefaultServerPort      = 8080
	DefaultMaxRequestSize  = 1 << 20
	DefaultMaxResponseSize = 10 << 20
	DefaultBackendBurst    = 5

	// DefaultRateLimitDelay is the window used when a 429 carries no
	// usable reset hint.
	DefaultRateLimitDelay = 15 * time.Minute

	// DefaultMaxResetHorizon caps how far ahead a RateLimit-Reset hint may
	// push the window.
	DefaultMaxResetHorizon = time.Hour

	// DefaultMaxRetryAfter caps the window a Retry-After hint may open.
	DefaultMaxRetryAfter = 24 * time.Hour

	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10
	DefaultLogFileMaxSizeMB             = 100
	DefaultLogFileMaxBackups            = 3
	DefaultLogFileMaxAgeDays            = 28
)

// Ambiguous 401 policies.
const (
	// UnauthorizedIgnore surfaces an ambiguous 401 without touching the session.
	UnauthorizedIgnore = "ignore"

	// UnauthorizedTerminal treats an ambiguous 401 on a retried request as a session end.
	UnauthorizedTerminal = "terminal"
)

// Credential store drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"        validate:"required"`
	Server    ServerConfig    `koanf:"server"     validate:"required"`
	Log       LogConfig       `koanf:"log"        validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Backend   BackendConfig   `koanf:"backend"    validate:"required"`
	Session   SessionConfig   `koanf:"session"    validate:"required"`
	RateLimit RateLimitConfig `koanf:"rate_limit" validate:"required"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// BackendConfig contains settings for the marketplace API.
type BackendConfig struct {
	BaseURL         string          `koanf:"base_url"          validate:"required,url"`
	Name            string          `koanf:"name"              validate:"required"`
	Timeout         time.Duration   `koanf:"timeout"           validate:"required,min=100ms"`
	MaxResponseSize int64           `koanf:"max_response_size" validate:"required,min=1024"`
	MaxRPS          float64         `koanf:"max_rps"           validate:"min=0"`
	Burst           int             `koanf:"burst"             validate:"min=0"`
	Transport       TransportConfig `koanf:"transport"         validate:"required"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// SessionConfig contains token renewal and credential storage settings.
type SessionConfig struct {
	RenewalPath           string        `koanf:"renewal_path"           validate:"required,startswith=/"`
	RenewalTimeout        time.Duration `koanf:"renewal_timeout"        validate:"required,min=100ms"`
	TerminalCodes         []string      `koanf:"terminal_codes"         validate:"required,min=1,dive,required"`
	AmbiguousUnauthorized string        `koanf:"ambiguous_unauthorized" validate:"required,oneof=ignore terminal"`
	Store                 StoreConfig   `koanf:"store"                  validate:"required"`
}

// StoreConfig selects and configures the credential store.
type StoreConfig struct {
	Driver    string `koanf:"driver"     validate:"required,oneof=memory file redis"`
	Path      string `koanf:"path"       validate:"required_if=Driver file"`
	RedisAddr string `koanf:"redis_addr" validate:"required_if=Driver redis"`
	RedisDB   int    `koanf:"redis_db"   validate:"min=0"`
	RedisKey  string `koanf:"redis_key"  validate:"required_if=Driver redis"`
}

// RateLimitConfig contains rate-limit breaker settings.
type RateLimitConfig struct {
	DefaultDelay    time.Duration `koanf:"default_delay"     validate:"required,min=1s"`
	MaxResetHorizon time.Duration `koanf:"max_reset_horizon" validate:"required,min=1s"`
	MaxRetryAfter   time.Duration `koanf:"max_retry_after"   validate:"omitempty,min=1s"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":        "session-relay",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "60s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/relay.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "session-relay",
		"telemetry.sampling_rate": 1.0,

		"backend.base_url":                          "http://localhost:3000",
		"backend.name":                              "marketplace-api",
		"backend.timeout":                           "30s",
		"backend.max_response_size":                 DefaultMaxResponseSize,
		"backend.max_rps":                           0,
		"backend.burst":                             DefaultBackendBurst,
		"backend.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"backend.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"backend.transport.idle_conn_timeout":       "90s",

		"session.renewal_path":    "/auth/refresh",
		"session.renewal_timeout": "15s",
		"session.terminal_codes": []string{
			"REFRESH_TOKEN_EXPIRED",
			"REFRESH_TOKEN_INVALID",
			"INVALID_REFRESH_TOKEN",
			"USER_NOT_FOUND",
		},
		"session.ambiguous_unauthorized": UnauthorizedIgnore,
		"session.store.driver":           StoreMemory,
		"session.store.path":             "./data/session.json",
		"session.store.redis_addr":       "localhost:6379",
		"session.store.redis_db":         0,
		"session.store.redis_key":        "session-relay:credentials",

		"rate_limit.default_delay":     DefaultRateLimitDelay.String(),
		"rate_limit.max_reset_horizon": DefaultMaxResetHorizon.String(),
		"rate_limit.max_retry_after":   DefaultMaxRetryAfter.String(),
	}
}

// listKeys are the keys whose APP_ variables hold comma-separated values.
var listKeys = map[string]bool{
	"session.terminal_codes": true,
}

// Load reads configuration from DefaultDir. See LoadDir.
func Load(profile string) (*Config, error) {
	return LoadDir(DefaultDir, profile)
}

// LoadDir layers configuration, later sources winning:
//  1. built-in defaults
//  2. dir/base.yaml
//  3. dir/{profile}.yaml
//  4. APP_ environment variables
//
// Missing files are skipped. A "__" in a variable name separates sections
// so multi-word keys survive: APP_SESSION__RENEWAL_PATH sets
// session.renewal_path, while APP_SERVER_PORT still sets server.port.
func LoadDir(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, filepath.Join(dir, "base.yaml")); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := loadFileIfExists(k, filepath.Join(dir, profile+".yaml")); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("APP_", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

func envValue(name, value string) (string, any) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}

	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return key, items
}

// envKey converts an APP_ environment variable name to a koanf key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "APP_"))
	if strings.Contains(key, "__") {
		return strings.ReplaceAll(key, "__", ".")
	}

	return strings.ReplaceAll(key, "_", ".")
}

func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
