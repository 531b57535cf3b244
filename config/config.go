// Package config loads xmlcast settings from a YAML file with
// environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("xmlcast.yaml").
//	    WithEnvPrefix("XMLCAST").
//	    Load()
//
// Precedence: defaults → YAML file → environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete xmlcast configuration.
type Config struct {
	// Cast controls the generate-validate-retry loop.
	Cast CastConfig `yaml:"cast"`

	// RateLimit throttles calls to the generation function.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Redis configures the optional shared schema cache.
	Redis RedisConfig `yaml:"redis"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	// Telemetry configures OTel export.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CastConfig controls the cast loop defaults.
type CastConfig struct {
	// MaxRetries is the retry budget for format correction.
	// 0 means fail immediately on the first bad decode.
	MaxRetries int `yaml:"max_retries"`

	// Temperature is the sampling hint attached to conversations.
	Temperature float32 `yaml:"temperature"`

	// IncludeExample appends a rendered valid example to correction
	// turns.
	IncludeExample bool `yaml:"include_example"`

	// TokenEncoding selects the tiktoken encoding for conversation
	// size reporting; empty disables exact counting and uses the
	// heuristic estimator.
	TokenEncoding string `yaml:"token_encoding"`
}

// RateLimitConfig throttles the generation function.
type RateLimitConfig struct {
	// Enabled turns the limiter middleware on.
	Enabled bool `yaml:"enabled"`
	// RPS is the sustained requests-per-second budget.
	RPS float64 `yaml:"rps"`
	// Burst is the burst allowance.
	Burst int `yaml:"burst"`
}

// RedisConfig configures the shared schema cache backend.
type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	KeyPrefix   string        `yaml:"key_prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Development enables console-friendly output.
	Development bool `yaml:"development"`
}

// TelemetryConfig configures OTel export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Cast: CastConfig{
			MaxRetries:     3,
			Temperature:    0.1,
			IncludeExample: true,
		},
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 1,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			KeyPrefix:   "xmlcast:schema:",
			DialTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			ServiceName:  "xmlcast",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Loader loads configuration with defaults, file and env layering.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with no file and the XMLCAST env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "XMLCAST"}
}

// WithConfigPath sets the YAML file path. An empty path skips the file
// layer.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides selected fields from the environment.
func (l *Loader) applyEnv(cfg *Config) {
	if v, ok := l.lookupInt("CAST_MAX_RETRIES"); ok {
		cfg.Cast.MaxRetries = v
	}
	if v, ok := l.lookup("CAST_TOKEN_ENCODING"); ok {
		cfg.Cast.TokenEncoding = v
	}
	if v, ok := l.lookup("REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	if v, ok := l.lookup("REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}
	if v, ok := l.lookupBool("REDIS_ENABLED"); ok {
		cfg.Redis.Enabled = v
	}
	if v, ok := l.lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := l.lookupBool("TELEMETRY_ENABLED"); ok {
		cfg.Telemetry.Enabled = v
	}
	if v, ok := l.lookup("TELEMETRY_OTLP_ENDPOINT"); ok {
		cfg.Telemetry.OTLPEndpoint = v
	}
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(l.envPrefix + "_" + key)
}

func (l *Loader) lookupInt(key string) (int, bool) {
	s, ok := l.lookup(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (l *Loader) lookupBool(key string) (bool, bool) {
	s, ok := l.lookup(key)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return v, true
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.Cast.MaxRetries < 0 {
		return fmt.Errorf("cast.max_retries must be non-negative, got %d", c.Cast.MaxRetries)
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate_limit.rps must be positive when enabled, got %v", c.RateLimit.RPS)
	}
	if c.Telemetry.Enabled && c.Telemetry.SampleRate <= 0 {
		return fmt.Errorf("telemetry.sample_rate must be positive when enabled, got %v", c.Telemetry.SampleRate)
	}
	return nil
}
