package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/opd-ai/landkeep/pkg/retry"

	"github.com/sirupsen/logrus"
)

// Config represents the server configuration with environment variable
// support. All configuration values can be set via environment variables or
// will use secure defaults. Config is thread-safe; all field access should
// be done through getter methods when used concurrently, or by holding the
// mutex directly.
type Config struct {
	// mu provides thread-safe access to configuration fields when the Config
	// instance is shared across goroutines.
	mu sync.RWMutex `json:"-"`

	// ListenAddr is the address the HTTP/WebSocket server listens on.
	ListenAddr string `json:"listen_addr"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `json:"log_level"`

	// AllowedOrigins is a list of allowed WebSocket origins for CORS.
	AllowedOrigins []string `json:"allowed_origins"`

	// EnableDevMode enables development-friendly settings: every WebSocket
	// origin is allowed and AllowedOrigins may be left empty.
	EnableDevMode bool `json:"enable_dev_mode"`

	// RequestTimeout is the maximum duration for processing a request.
	RequestTimeout time.Duration `json:"request_timeout"`

	// ShutdownTimeout is the maximum duration for graceful server shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// SyncParallelEncode enables per-player encode fan-out via errgroup
	// during syncNow/syncBroadcastOnly.
	SyncParallelEncode bool `json:"sync_parallel_encode"`

	// IdleEmptyDuration is how long an empty land instance lives before its
	// Keeper auto-destroys it. Zero disables idle-destroy.
	IdleEmptyDuration time.Duration `json:"idle_empty_duration"`

	// JoinRateLimitPerSecond is the sustained per-ClientID join rate the
	// Router enforces. Zero disables join rate limiting.
	JoinRateLimitPerSecond float64 `json:"join_rate_limit_per_second"`

	// JoinRateLimitBurst is the token bucket burst size for join rate
	// limiting.
	JoinRateLimitBurst int `json:"join_rate_limit_burst"`

	// RecorderDir, if non-empty, enables the optional reevaluation recorder
	// and names the directory its per-land JSON logs are written under.
	RecorderDir string `json:"recorder_dir"`

	// Retry configuration

	// RetryEnabled enables retry logic for transient failures (e.g. recorder
	// persistence I/O).
	RetryEnabled bool `json:"retry_enabled"`

	// RetryMaxAttempts is the maximum number of retry attempts (including
	// the initial attempt).
	RetryMaxAttempts int `json:"retry_max_attempts"`

	// RetryInitialDelay is the initial delay before the first retry.
	RetryInitialDelay time.Duration `json:"retry_initial_delay"`

	// RetryMaxDelay is the maximum delay between retries.
	RetryMaxDelay time.Duration `json:"retry_max_delay"`

	// RetryBackoffMultiplier is the multiplier for exponential backoff
	// (typically 2.0).
	RetryBackoffMultiplier float64 `json:"retry_backoff_multiplier"`

	// RetryJitterPercent is the maximum percentage of jitter to add
	// (0-100).
	RetryJitterPercent int `json:"retry_jitter_percent"`
}

// Load creates a new Config instance by reading from environment variables
// and applying secure defaults. It validates all configuration values and
// returns an error if any required values are missing or invalid.
func Load() (*Config, error) {
	logrus.WithField("function", "Load").Debug("entering Load")

	cfg := &Config{
		ListenAddr:     getEnvAsString("SST_LISTEN_ADDR", ":8080"),
		LogLevel:       getEnvAsString("SST_LOG_LEVEL", "info"),
		AllowedOrigins: getEnvAsStringSlice("SST_ALLOWED_ORIGINS", []string{}),
		EnableDevMode:  getEnvAsBool("SST_ENABLE_DEV_MODE", true),
		RequestTimeout: getEnvAsDuration("SST_REQUEST_TIMEOUT", 30*time.Second),

		ShutdownTimeout: getEnvAsDuration("SST_SHUTDOWN_TIMEOUT", 30*time.Second),

		SyncParallelEncode: getEnvAsBool("SST_SYNC_PARALLEL_ENCODE", true),
		IdleEmptyDuration:  time.Duration(getEnvAsInt("SST_IDLE_EMPTY_SECONDS", 0)) * time.Second,

		JoinRateLimitPerSecond: getEnvAsFloat64("SST_JOIN_RATE_PER_SECOND", 0),
		JoinRateLimitBurst:     getEnvAsInt("SST_JOIN_RATE_BURST", 10),

		RecorderDir: getEnvAsString("SST_RECORDER_DIR", ""),

		RetryEnabled:           getEnvAsBool("SST_RETRY_ENABLED", true),
		RetryMaxAttempts:       getEnvAsInt("SST_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay:      getEnvAsDuration("SST_RETRY_INITIAL_DELAY", 100*time.Millisecond),
		RetryMaxDelay:          getEnvAsDuration("SST_RETRY_MAX_DELAY", 30*time.Second),
		RetryBackoffMultiplier: getEnvAsFloat64("SST_RETRY_BACKOFF_MULTIPLIER", 2.0),
		RetryJitterPercent:     getEnvAsInt("SST_RETRY_JITTER_PERCENT", 10),
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Load",
		"listen_addr":  cfg.ListenAddr,
		"dev_mode":     cfg.EnableDevMode,
		"log_level":    cfg.LogLevel,
		"recorder_dir": cfg.RecorderDir,
	}).Debug("configuration loaded, starting validation")

	if err := cfg.validate(); err != nil {
		logrus.WithField("function", "Load").WithError(err).Error("configuration validation failed")
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate checks that all configuration values are valid and consistent.
func (c *Config) validate() error {
	if err := c.validateServerSettings(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateSecuritySettings(); err != nil {
		return err
	}
	if err := c.validateJoinRateLimit(); err != nil {
		return err
	}
	if err := c.validateRetryConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServerSettings() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, level := range validLogLevels {
		if strings.ToLower(c.LogLevel) == level {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("log level must be one of %v, got %s", validLogLevels, c.LogLevel)
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("request timeout must be at least 1 second, got %v", c.RequestTimeout)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.IdleEmptyDuration < 0 {
		return fmt.Errorf("idle empty duration must be non-negative, got %v", c.IdleEmptyDuration)
	}
	return nil
}

// validateSecuritySettings requires an explicit origin allowlist in
// production mode.
func (c *Config) validateSecuritySettings() error {
	if !c.EnableDevMode && len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed origins must be specified when dev mode is disabled")
	}
	return nil
}

func (c *Config) validateJoinRateLimit() error {
	if c.JoinRateLimitPerSecond > 0 && c.JoinRateLimitBurst <= 0 {
		return fmt.Errorf("join rate limit burst must be greater than 0 when join rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateRetryConfig() error {
	if c.RetryEnabled {
		if c.RetryMaxAttempts < 1 {
			return fmt.Errorf("retry max attempts must be at least 1 when retry is enabled")
		}
		if c.RetryInitialDelay < 0 {
			return fmt.Errorf("retry initial delay must be non-negative when retry is enabled")
		}
		if c.RetryMaxDelay < c.RetryInitialDelay {
			return fmt.Errorf("retry max delay must be greater than or equal to initial delay when retry is enabled")
		}
		if c.RetryBackoffMultiplier <= 1.0 {
			return fmt.Errorf("retry backoff multiplier must be greater than 1.0 when retry is enabled")
		}
		if c.RetryJitterPercent < 0 || c.RetryJitterPercent > 100 {
			return fmt.Errorf("retry jitter percent must be between 0 and 100 when retry is enabled")
		}
	}
	return nil
}

// OriginAllowed checks if the given origin is allowed for WebSocket
// connections. In development mode, all origins are allowed. This method is
// thread-safe.
func (c *Config) OriginAllowed(origin string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.EnableDevMode {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// GetRetryConfig converts the application-level retry settings into
// retry.RetryConfig, ready for retry.NewRetrier.
func (c *Config) GetRetryConfig() retry.RetryConfig {
	return retry.RetryConfig{
		MaxAttempts:       c.RetryMaxAttempts,
		InitialDelay:      c.RetryInitialDelay,
		MaxDelay:          c.RetryMaxDelay,
		BackoffMultiplier: c.RetryBackoffMultiplier,
		JitterMaxPercent:  c.RetryJitterPercent,
		RetryableErrors:   []error{},
	}
}

// Helper functions for environment variable parsing with type safety and
// defaults.

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
