// Package config provides configuration management for a landkeep server.
//
// This package handles environment variable loading with type-safe parsing,
// applies secure production defaults, and validates every configuration
// value on load.
//
// # Loading Configuration
//
// Configuration is loaded from environment variables with the SST_ prefix:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
// Server settings:
//   - SST_LISTEN_ADDR: listen address (default: ":8080")
//   - SST_LOG_LEVEL: logging verbosity (default: "info")
//
// Timeouts:
//   - SST_REQUEST_TIMEOUT: request processing timeout (default: 30s)
//   - SST_SHUTDOWN_TIMEOUT: graceful shutdown timeout (default: 30s)
//   - SST_IDLE_EMPTY_SECONDS: idle-empty land lifetime in seconds (default: 0, disabled)
//
// Security:
//   - SST_ENABLE_DEV_MODE: relax origin checking for local development (default: true)
//   - SST_ALLOWED_ORIGINS: comma-separated allowed WebSocket origins
//
// Join rate limiting:
//   - SST_JOIN_RATE_PER_SECOND: sustained per-client join rate (default: 0, disabled)
//   - SST_JOIN_RATE_BURST: token bucket burst size (default: 10)
//
// Sync engine:
//   - SST_SYNC_PARALLEL_ENCODE: fan out per-player encode across goroutines (default: true)
//
// Persistence:
//   - SST_RECORDER_DIR: directory for the optional reevaluation recorder (default: disabled)
//
// Retry policy:
//   - SST_RETRY_ENABLED: enable retry for transient I/O failures (default: true)
//   - SST_RETRY_MAX_ATTEMPTS: maximum attempts including the first (default: 3)
//   - SST_RETRY_INITIAL_DELAY: first retry delay (default: 100ms)
//   - SST_RETRY_MAX_DELAY: maximum retry delay (default: 30s)
//   - SST_RETRY_BACKOFF_MULTIPLIER: backoff factor (default: 2.0)
//   - SST_RETRY_JITTER_PERCENT: jitter as a percentage of delay (default: 10)
//
// # Validation
//
// All configuration values are validated on load:
//   - Listen address must be non-empty
//   - Log level must be one of debug/info/warn/error
//   - Timeouts must meet minimum requirements
//   - Allowed origins must be non-empty when dev mode is disabled
//   - Retry configuration must be internally consistent when enabled
//
// # CORS Support
//
// Use OriginAllowed to check WebSocket origins:
//
//	if cfg.OriginAllowed(origin) {
//	    // allow connection
//	}
//
// In development mode (EnableDevMode=true), all origins are allowed.
//
// # Retry Configuration
//
// GetRetryConfig returns a retry.RetryConfig that can be used directly
// with the retry package:
//
//	retryConfig := cfg.GetRetryConfig()
//	retrier := retry.NewRetrier(retryConfig)
package config
