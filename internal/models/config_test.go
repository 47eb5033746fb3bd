package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	assert.Equal(t, 100, cfg.RateLimit.Capacity)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillPeriod)
	assert.Equal(t, 10*time.Hour, cfg.TokenCache.TTL)
	assert.Equal(t, 100, cfg.TokenCache.MaxEntries)
	assert.Equal(t, SignerTypeFake, cfg.Signer.Type)
	assert.Zero(t, cfg.API.Timeout, "no client deadline by default")
}

func TestAPIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  APIConfig
		wantErr string
	}{
		{name: "valid http", config: APIConfig{BaseURL: "http://localhost:3000"}},
		{name: "valid https", config: APIConfig{BaseURL: "https://ismp.crpt.ru", Timeout: time.Minute}},
		{name: "empty", config: APIConfig{}, wantErr: "base url cannot be empty"},
		{name: "bad scheme", config: APIConfig{BaseURL: "ftp://host"}, wantErr: "unsupported base url scheme"},
		{name: "no host", config: APIConfig{BaseURL: "http://"}, wantErr: "must include a host"},
		{name: "negative timeout", config: APIConfig{BaseURL: "http://h", Timeout: -time.Second}, wantErr: "timeout cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRateLimitConfig_Validate(t *testing.T) {
	valid := RateLimitConfig{Strategy: RateLimitStrategyBucket, Capacity: 10, RefillAmount: 5, RefillPeriod: time.Second}

	tests := []struct {
		name    string
		mutate  func(c *RateLimitConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *RateLimitConfig) {}},
		{name: "empty strategy", mutate: func(c *RateLimitConfig) { c.Strategy = "" }},
		{name: "smooth", mutate: func(c *RateLimitConfig) { c.Strategy = RateLimitStrategySmooth }},
		{name: "unknown strategy", mutate: func(c *RateLimitConfig) { c.Strategy = "leaky" }, wantErr: "invalid rate limit strategy"},
		{name: "zero capacity", mutate: func(c *RateLimitConfig) { c.Capacity = 0 }, wantErr: "capacity must be positive"},
		{name: "zero refill", mutate: func(c *RateLimitConfig) { c.RefillAmount = 0 }, wantErr: "refill amount must be positive"},
		{name: "zero period", mutate: func(c *RateLimitConfig) { c.RefillPeriod = 0 }, wantErr: "refill period must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTokenCacheConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  TokenCacheConfig
		wantErr string
	}{
		{name: "memory", config: TokenCacheConfig{Type: TokenCacheMemory, TTL: time.Hour, MaxEntries: 10}},
		{name: "redis", config: TokenCacheConfig{Type: TokenCacheRedis, TTL: time.Hour, Redis: RedisConfig{Addr: "localhost:6379"}}},
		{name: "unknown type", config: TokenCacheConfig{Type: "memcached", TTL: time.Hour}, wantErr: "invalid token cache type"},
		{name: "zero ttl", config: TokenCacheConfig{Type: TokenCacheMemory, MaxEntries: 1}, wantErr: "TTL must be positive"},
		{name: "zero entries", config: TokenCacheConfig{Type: TokenCacheMemory, TTL: time.Hour}, wantErr: "max entries must be positive"},
		{name: "redis without addr", config: TokenCacheConfig{Type: TokenCacheRedis, TTL: time.Hour}, wantErr: "Redis address is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSignerConfig_Validate(t *testing.T) {
	assert.NoError(t, (&SignerConfig{Type: SignerTypeFake}).Validate())
	assert.NoError(t, (&SignerConfig{Type: SignerTypeCommand, Command: "cryptcp"}).Validate())

	err := (&SignerConfig{Type: SignerTypeCommand}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command is required")

	err = (&SignerConfig{Type: "hsm"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signer type")
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		wantErr string
	}{
		{name: "valid", config: LoggingConfig{Level: "info", Format: "json", Output: "stdout"}},
		{name: "file", config: LoggingConfig{Level: "debug", Format: "text", Output: "file", FilePath: "/tmp/x.log"}},
		{name: "bad level", config: LoggingConfig{Level: "trace", Format: "json", Output: "stdout"}, wantErr: "invalid log level"},
		{name: "bad format", config: LoggingConfig{Level: "info", Format: "xml", Output: "stdout"}, wantErr: "invalid log format"},
		{name: "bad output", config: LoggingConfig{Level: "info", Format: "json", Output: "syslog"}, wantErr: "invalid log output"},
		{name: "file without path", config: LoggingConfig{Level: "info", Format: "json", Output: "file"}, wantErr: "file path is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMetricsConfig_Validate(t *testing.T) {
	assert.NoError(t, (&MetricsConfig{Enabled: false}).Validate())
	assert.NoError(t, (&MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}).Validate())
	assert.Error(t, (&MetricsConfig{Enabled: true, Port: 9090}).Validate())
	assert.Error(t, (&MetricsConfig{Enabled: true, Path: "/metrics", Port: 70000}).Validate())
}

func TestObservabilityConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      ObservabilityConfig
		expectError bool
	}{
		{name: "tracing disabled", config: ObservabilityConfig{Tracing: TracingConfig{Enabled: false}}},
		{name: "stdout", config: ObservabilityConfig{ServiceName: "crptapi", Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1}}},
		{name: "otlp without endpoint", config: ObservabilityConfig{ServiceName: "crptapi", Tracing: TracingConfig{Enabled: true, Exporter: "otlp"}}, expectError: true},
		{name: "unknown exporter", config: ObservabilityConfig{ServiceName: "crptapi", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin"}}, expectError: true},
		{name: "bad sample rate", config: ObservabilityConfig{ServiceName: "crptapi", Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 2}}, expectError: true},
		{name: "missing service name", config: ObservabilityConfig{Tracing: TracingConfig{Enabled: true, Exporter: "stdout"}}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStorageConfig_Validate(t *testing.T) {
	assert.NoError(t, (&StorageConfig{Type: StorageTypeMemory}).Validate())
	assert.NoError(t, (&StorageConfig{Type: StorageTypeJSON, Path: "journal.json"}).Validate())
	assert.NoError(t, (&StorageConfig{Type: StorageTypeSQLite, DSN: "journal.db"}).Validate())
	assert.Error(t, (&StorageConfig{Type: StorageTypeJSON}).Validate())
	assert.Error(t, (&StorageConfig{Type: StorageTypeSQLite}).Validate())
	assert.NoError(t, (&StorageConfig{Type: StorageTypePostgres, DSN: "postgres://localhost/crptapi"}).Validate())
	assert.Error(t, (&StorageConfig{Type: StorageTypePostgres}).Validate())
	assert.Error(t, (&StorageConfig{Type: "mysql"}).Validate())
}

func TestConfig_ValidatePrefixesSection(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.RateLimit.Capacity = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rate limit config")
}
