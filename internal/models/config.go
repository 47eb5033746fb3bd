// Package models - client configuration.
// This file defines the configuration tree for every crptapi component.
//
// Configuration Philosophy:
// - Hierarchical grouping (api, rate limit, token cache, signer, logging, ...)
// - Defaults that work against a local stand without any file
// - Validation catches misconfiguration before the first request is sent
package models

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// Rate limit strategies
const (
	RateLimitStrategyBucket = "bucket"
	RateLimitStrategySmooth = "smooth"
)

// Token cache backends
const (
	TokenCacheMemory = "memory"
	TokenCacheRedis  = "redis"
)

// Signer types
const (
	SignerTypeFake    = "fake"
	SignerTypeCommand = "command"
)

// Journal storage types
const (
	StorageTypeMemory   = "memory"
	StorageTypeJSON     = "json"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// Config is the root configuration structure.
//
// Configuration Structure:
// - API: where the document API lives and how to reach it
// - RateLimit: shared request budget for all outgoing calls
// - TokenCache: where bearer tokens are kept between calls
// - Signer: how handshake challenges are signed
// - Logging, Metrics, Observability: ambient concerns
// - Storage: local journal of created documents
type Config struct {
	API           APIConfig           `yaml:"api" json:"api"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
	TokenCache    TokenCacheConfig    `yaml:"token_cache" json:"token_cache"`
	Signer        SignerConfig        `yaml:"signer" json:"signer"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
}

// APIConfig locates the document API. A zero Timeout leaves the HTTP client
// without a deadline.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig describes the shared token bucket: Capacity permits at
// most, RefillAmount permits added every RefillPeriod.
type RateLimitConfig struct {
	Strategy     string        `yaml:"strategy" json:"strategy"`
	Capacity     int           `yaml:"capacity" json:"capacity"`
	RefillAmount int           `yaml:"refill_amount" json:"refill_amount"`
	RefillPeriod time.Duration `yaml:"refill_period" json:"refill_period"`
}

type TokenCacheConfig struct {
	Type       string        `yaml:"type" json:"type"`
	TTL        time.Duration `yaml:"ttl" json:"ttl"`
	MaxEntries int           `yaml:"max_entries" json:"max_entries"`
	KeyPrefix  string        `yaml:"key_prefix" json:"key_prefix"`
	Redis      RedisConfig   `yaml:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

// SignerConfig selects the challenge signer. Command receives the challenge
// on stdin and must print the detached signature on stdout.
type SignerConfig struct {
	Type    string        `yaml:"type" json:"type"`
	Command string        `yaml:"command" json:"command"`
	Args    []string      `yaml:"args" json:"args"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// StorageConfig configures the journal of created documents.
type StorageConfig struct {
	Type string `yaml:"type" json:"type"`
	Path string `yaml:"path" json:"path"`
	DSN  string `yaml:"dsn" json:"dsn"`
}

// NewDefaultConfig returns a configuration for a local stand.
//
// Default Values Rationale:
// - 100 requests per second: the documented API quota
// - Tokens cached for 10 hours, 100 entries at most
// - Fake signer: nothing external is required to try the client
// - Metrics disabled: the CLI is short-lived unless running a batch
func NewDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000",
		},
		RateLimit: RateLimitConfig{
			Strategy:     RateLimitStrategyBucket,
			Capacity:     100,
			RefillAmount: 100,
			RefillPeriod: time.Second,
		},
		TokenCache: TokenCacheConfig{
			Type:       TokenCacheMemory,
			TTL:        10 * time.Hour,
			MaxEntries: 100,
			KeyPrefix:  "crptapi:",
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		Signer: SignerConfig{
			Type:    SignerTypeFake,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "crptapi",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
		},
	}
}

func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("invalid api config: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("invalid rate limit config: %w", err)
	}
	if err := c.TokenCache.Validate(); err != nil {
		return fmt.Errorf("invalid token cache config: %w", err)
	}
	if err := c.Signer.Validate(); err != nil {
		return fmt.Errorf("invalid signer config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}
	return nil
}

func (ac *APIConfig) Validate() error {
	if ac.BaseURL == "" {
		return errors.New("base url cannot be empty")
	}
	u, err := url.Parse(ac.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported base url scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("base url must include a host")
	}
	if ac.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

func (rc *RateLimitConfig) Validate() error {
	if !slices.Contains([]string{"", RateLimitStrategyBucket, RateLimitStrategySmooth}, rc.Strategy) {
		return fmt.Errorf("invalid rate limit strategy: %s", rc.Strategy)
	}
	if rc.Capacity <= 0 {
		return errors.New("capacity must be positive")
	}
	if rc.RefillAmount <= 0 {
		return errors.New("refill amount must be positive")
	}
	if rc.RefillPeriod <= 0 {
		return errors.New("refill period must be positive")
	}
	return nil
}

func (tc *TokenCacheConfig) Validate() error {
	if !slices.Contains([]string{TokenCacheMemory, TokenCacheRedis}, tc.Type) {
		return fmt.Errorf("invalid token cache type: %s", tc.Type)
	}
	if tc.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if tc.Type == TokenCacheMemory && tc.MaxEntries <= 0 {
		return errors.New("max entries must be positive")
	}
	if tc.Type == TokenCacheRedis && tc.Redis.Addr == "" {
		return errors.New("Redis address is required when token cache type is redis")
	}
	return nil
}

func (sc *SignerConfig) Validate() error {
	switch sc.Type {
	case SignerTypeFake:
		return nil
	case SignerTypeCommand:
		if sc.Command == "" {
			return errors.New("command is required for the command signer")
		}
		if sc.Timeout < 0 {
			return errors.New("signer timeout cannot be negative")
		}
		return nil
	default:
		return fmt.Errorf("invalid signer type: %s", sc.Type)
	}
}

func (lc *LoggingConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}
	if !slices.Contains([]string{"json", "text"}, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}
	if !slices.Contains([]string{"stdout", "stderr", "file"}, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}
	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}
	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}
	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}
	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}
	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if !oc.Tracing.Enabled {
		return nil
	}
	if oc.ServiceName == "" {
		return errors.New("service name is required when tracing is enabled")
	}
	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("otlp endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}
	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("sample rate must be between 0 and 1")
	}
	return nil
}

func (stc *StorageConfig) Validate() error {
	switch stc.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeJSON:
		if stc.Path == "" {
			return errors.New("path is required for JSON storage")
		}
	case StorageTypeSQLite, StorageTypePostgres:
		if stc.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", stc.Type)
		}
	default:
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}
	return nil
}
