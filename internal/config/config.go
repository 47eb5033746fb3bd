package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"crptapi/internal/models"

	"gopkg.in/yaml.v3"
)

// envPrefix namespaces every environment override.
const envPrefix = "CRPTAPI_"

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// legacyConfig mirrors keys of older config files that are no longer read.
type legacyConfig struct {
	API struct {
		Protocol string `yaml:"protocol"`
		Host     string `yaml:"host"`
	} `yaml:"api"`
	RateLimit struct {
		RequestLimit *int   `yaml:"request_limit"`
		TimeUnit     string `yaml:"time_unit"`
	} `yaml:"rate_limit"`
}

// warnLegacyKeys logs a warning for each removed config key found in the YAML data.
// These keys are silently ignored by the main decoder.
func warnLegacyKeys(data []byte) {
	var legacy legacyConfig
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return
	}
	if legacy.API.Protocol != "" || legacy.API.Host != "" {
		slog.Warn("Config keys are no longer read; use api.base_url instead.", "config_key", "api.protocol/api.host")
	}
	if legacy.RateLimit.RequestLimit != nil {
		slog.Warn("Config key is no longer read; use rate_limit.capacity and rate_limit.refill_amount.", "config_key", "rate_limit.request_limit")
	}
	if legacy.RateLimit.TimeUnit != "" {
		slog.Warn("Config key is no longer read; use rate_limit.refill_period.", "config_key", "rate_limit.time_unit")
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnLegacyKeys(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables.
// Values that fail to parse are ignored.
func loadFromEnvironment(config *models.Config) {
	// API configuration
	envString("API_BASE_URL", &config.API.BaseURL)
	envDuration("API_TIMEOUT", &config.API.Timeout)

	// Rate limit configuration
	envString("RATE_LIMIT_STRATEGY", &config.RateLimit.Strategy)
	envInt("RATE_LIMIT_CAPACITY", &config.RateLimit.Capacity)
	envInt("RATE_LIMIT_REFILL_AMOUNT", &config.RateLimit.RefillAmount)
	envDuration("RATE_LIMIT_REFILL_PERIOD", &config.RateLimit.RefillPeriod)

	// Token cache configuration
	envString("TOKEN_CACHE_TYPE", &config.TokenCache.Type)
	envDuration("TOKEN_CACHE_TTL", &config.TokenCache.TTL)
	envInt("TOKEN_CACHE_MAX_ENTRIES", &config.TokenCache.MaxEntries)
	envString("TOKEN_CACHE_KEY_PREFIX", &config.TokenCache.KeyPrefix)

	// Redis configuration
	envString("REDIS_ADDR", &config.TokenCache.Redis.Addr)
	envString("REDIS_PASSWORD", &config.TokenCache.Redis.Password)
	envInt("REDIS_DB", &config.TokenCache.Redis.DB)
	envInt("REDIS_POOL_SIZE", &config.TokenCache.Redis.PoolSize)

	// Signer configuration
	envString("SIGNER_TYPE", &config.Signer.Type)
	envString("SIGNER_COMMAND", &config.Signer.Command)
	if args := os.Getenv(envPrefix + "SIGNER_ARGS"); args != "" {
		config.Signer.Args = strings.Fields(args)
	}
	envDuration("SIGNER_TIMEOUT", &config.Signer.Timeout)

	// Logging configuration
	envString("LOG_LEVEL", &config.Logging.Level)
	envString("LOG_FORMAT", &config.Logging.Format)
	envString("LOG_OUTPUT", &config.Logging.Output)
	envString("LOG_FILE_PATH", &config.Logging.FilePath)
	envInt("LOG_MAX_SIZE", &config.Logging.MaxSize)
	envInt("LOG_MAX_BACKUPS", &config.Logging.MaxBackups)
	envInt("LOG_MAX_AGE", &config.Logging.MaxAge)
	envBool("LOG_COMPRESS", &config.Logging.Compress)

	// Metrics configuration
	envBool("METRICS_ENABLED", &config.Metrics.Enabled)
	envString("METRICS_PATH", &config.Metrics.Path)
	envInt("METRICS_PORT", &config.Metrics.Port)

	// Tracing configuration
	envString("SERVICE_NAME", &config.Observability.ServiceName)
	envBool("TRACING_ENABLED", &config.Observability.Tracing.Enabled)
	envString("TRACING_EXPORTER", &config.Observability.Tracing.Exporter)
	envString("TRACING_OTLP_ENDPOINT", &config.Observability.Tracing.OTLPEndpoint)
	if rate := os.Getenv(envPrefix + "TRACING_SAMPLE_RATE"); rate != "" {
		if r, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Observability.Tracing.SampleRate = r
		}
	}

	// Storage configuration
	envString("STORAGE_TYPE", &config.Storage.Type)
	envString("STORAGE_PATH", &config.Storage.Path)
	envString("STORAGE_DSN", &config.Storage.DSN)
}

func envString(name string, dst *string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(envPrefix + name); v != "" {
		*dst = strings.ToLower(v) == "true"
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := ExampleYAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ExampleYAML renders the default configuration with illustrative values for
// the optional sections.
func ExampleYAML() ([]byte, error) {
	config := models.NewDefaultConfig()

	config.API.BaseURL = "https://ismp.crpt.ru"
	config.API.Timeout = 30 * time.Second

	// Example signer wired to an external crypto provider
	config.Signer.Type = models.SignerTypeCommand
	config.Signer.Command = "/usr/local/bin/crpt-sign"
	config.Signer.Args = []string{"--detached", "--base64"}

	// Keep a persistent journal
	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.DSN = "./data/documents.db"

	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	return data, nil
}
