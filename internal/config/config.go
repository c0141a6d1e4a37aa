package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/picmap/internal/domain"
)

// Config holds the picmap API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Elastic    ElasticConfig    `yaml:"elastic"`
	Search     SearchConfig     `yaml:"search"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys    []string `yaml:"api_keys"`
	PublicRead bool     `yaml:"public_read"` // anonymous GET on catalogue routes
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds key-value store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ElasticConfig holds search backend settings.
type ElasticConfig struct {
	Addresses  []string `yaml:"addresses"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	Index      string   `yaml:"index"`
	JoinField  string   `yaml:"join_field"`
	TimeoutSec int      `yaml:"timeout_sec"`
}

// SearchConfig holds paging, date range and response cache settings.
type SearchConfig struct {
	PageSize        int `yaml:"page_size"`
	ResultLimit     int `yaml:"result_limit"`
	AggregationSize int `yaml:"aggregation_size"`
	MinYear         int `yaml:"min_year"`
	MaxYear         int `yaml:"max_year"`
	CacheTTLSec     int `yaml:"cache_ttl_sec"` // 0 = no response cache
}

// SessionsConfig holds interactive session limits.
type SessionsConfig struct {
	TTLSec      int `yaml:"ttl_sec"`
	MaxSessions int `yaml:"max_sessions"`
}

// ResilienceConfig holds retry, circuit breaker and rate limit settings
// for search backend calls.
type ResilienceConfig struct {
	RetryMaxAttempts        int     `yaml:"retry_max_attempts"`
	RetryInitialBackoffMs   int     `yaml:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs       int     `yaml:"retry_max_backoff_ms"`
	RetryMultiplier         float64 `yaml:"retry_multiplier"`
	BreakerDisabled         bool    `yaml:"breaker_disabled"`
	BreakerMinRequests      uint32  `yaml:"breaker_min_requests"`
	BreakerFailureRatio     float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSec   int     `yaml:"breaker_open_timeout_sec"`
	BreakerHalfOpenMaxCalls uint32  `yaml:"breaker_half_open_max_calls"`
	RateLimit               float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst               int     `yaml:"rate_burst"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Elastic.Index == "" {
		c.Elastic.Index = "pic"
	}
	if c.Elastic.JoinField == "" {
		c.Elastic.JoinField = "join_field"
	}
	if c.Elastic.TimeoutSec <= 0 {
		c.Elastic.TimeoutSec = 30
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 1000
	}
	if c.Search.ResultLimit <= 0 {
		c.Search.ResultLimit = 50
	}
	if c.Search.AggregationSize <= 0 {
		c.Search.AggregationSize = 500
	}
	if c.Search.MinYear == 0 && c.Search.MaxYear == 0 {
		c.Search.MinYear, c.Search.MaxYear = 1700, 2017
	}
	if c.Sessions.TTLSec <= 0 {
		c.Sessions.TTLSec = 1800
	}
	if c.Sessions.MaxSessions <= 0 {
		c.Sessions.MaxSessions = 1000
	}
	if c.Resilience.RetryMaxAttempts <= 0 {
		c.Resilience.RetryMaxAttempts = 3
	}
	if c.Resilience.RetryInitialBackoffMs <= 0 {
		c.Resilience.RetryInitialBackoffMs = 100
	}
	if c.Resilience.RetryMaxBackoffMs <= 0 {
		c.Resilience.RetryMaxBackoffMs = 400
	}
	if c.Resilience.RetryMultiplier <= 0 {
		c.Resilience.RetryMultiplier = 2.0
	}
	if c.Resilience.BreakerMinRequests == 0 {
		c.Resilience.BreakerMinRequests = 10
	}
	if c.Resilience.BreakerFailureRatio == 0 {
		c.Resilience.BreakerFailureRatio = 0.5
	}
	if c.Resilience.BreakerOpenTimeoutSec <= 0 {
		c.Resilience.BreakerOpenTimeoutSec = 30
	}
	if c.Resilience.BreakerHalfOpenMaxCalls == 0 {
		c.Resilience.BreakerHalfOpenMaxCalls = 2
	}
	if c.Resilience.RateBurst <= 0 {
		c.Resilience.RateBurst = 20
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = domain.KeyPrefix
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "", "valkey", "redis":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if len(c.Elastic.Addresses) == 0 {
		return fmt.Errorf("elastic.addresses is required")
	}
	if c.Search.MinYear > c.Search.MaxYear {
		return fmt.Errorf("search.min_year (%d) must not exceed search.max_year (%d)",
			c.Search.MinYear, c.Search.MaxYear)
	}
	if r := c.Resilience.BreakerFailureRatio; r < 0 || r > 1 {
		return fmt.Errorf("resilience.breaker_failure_ratio must be between 0 and 1, got %v", r)
	}
	if c.Resilience.RateLimit < 0 {
		return fmt.Errorf("resilience.rate_limit must not be negative, got %v", c.Resilience.RateLimit)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
