package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		validate    func(t *testing.T, config *Config)
	}{
		{
			name:        "default configuration",
			envVars:     map[string]string{},
			expectError: false,
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, ":8080", config.ListenAddr)
				assert.Equal(t, "info", config.LogLevel)
				assert.Equal(t, []string{}, config.AllowedOrigins)
				assert.Equal(t, true, config.EnableDevMode)
				assert.Equal(t, 30*time.Second, config.RequestTimeout)
				assert.Equal(t, true, config.SyncParallelEncode)
				assert.Equal(t, time.Duration(0), config.IdleEmptyDuration)
				assert.Equal(t, "", config.RecorderDir)
			},
		},
		{
			name: "custom configuration from environment",
			envVars: map[string]string{
				"SST_LISTEN_ADDR":      ":9090",
				"SST_LOG_LEVEL":        "debug",
				"SST_ALLOWED_ORIGINS":  "http://localhost:3000,https://example.com",
				"SST_ENABLE_DEV_MODE":  "true",
				"SST_REQUEST_TIMEOUT":  "45s",
				"SST_IDLE_EMPTY_SECONDS":  "120",
				"SST_JOIN_RATE_PER_SECOND": "5",
				"SST_JOIN_RATE_BURST":      "10",
				"SST_RECORDER_DIR":         "/tmp/records",
			},
			expectError: false,
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, ":9090", config.ListenAddr)
				assert.Equal(t, "debug", config.LogLevel)
				assert.Equal(t, []string{"http://localhost:3000", "https://example.com"}, config.AllowedOrigins)
				assert.Equal(t, true, config.EnableDevMode)
				assert.Equal(t, 45*time.Second, config.RequestTimeout)
				assert.Equal(t, 120*time.Second, config.IdleEmptyDuration)
				assert.Equal(t, 5.0, config.JoinRateLimitPerSecond)
				assert.Equal(t, 10, config.JoinRateLimitBurst)
				assert.Equal(t, "/tmp/records", config.RecorderDir)
			},
		},
		{
			name: "invalid log level",
			envVars: map[string]string{
				"SST_LOG_LEVEL": "invalid",
			},
			expectError: true,
		},
		{
			name: "request timeout too short",
			envVars: map[string]string{
				"SST_REQUEST_TIMEOUT": "500ms",
			},
			expectError: true,
		},
		{
			name: "production mode without allowed origins",
			envVars: map[string]string{
				"SST_ENABLE_DEV_MODE": "false",
			},
			expectError: true,
		},
		{
			name: "production mode with allowed origins",
			envVars: map[string]string{
				"SST_ENABLE_DEV_MODE": "false",
				"SST_ALLOWED_ORIGINS": "https://production.example.com",
			},
			expectError: false,
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, false, config.EnableDevMode)
				assert.Equal(t, []string{"https://production.example.com"}, config.AllowedOrigins)
			},
		},
		{
			name: "join rate limit burst required when rate set",
			envVars: map[string]string{
				"SST_JOIN_RATE_PER_SECOND": "5",
				"SST_JOIN_RATE_BURST":      "0",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv()

			for key, value := range tt.envVars {
				os.Setenv(key, value)
				defer os.Unsetenv(key)
			}

			config, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
			} else {
				require.NoError(t, err)
				require.NotNil(t, config)
				if tt.validate != nil {
					tt.validate(t, config)
				}
			}
		})
	}
}

func TestConfig_OriginAllowed(t *testing.T) {
	tests := []struct {
		name           string
		config         *Config
		origin         string
		expectedResult bool
	}{
		{
			name: "dev mode allows all origins",
			config: &Config{
				EnableDevMode:  true,
				AllowedOrigins: []string{"https://example.com"},
			},
			origin:         "https://unknown.com",
			expectedResult: true,
		},
		{
			name: "production mode allows listed origin",
			config: &Config{
				EnableDevMode:  false,
				AllowedOrigins: []string{"https://example.com", "https://app.example.com"},
			},
			origin:         "https://example.com",
			expectedResult: true,
		},
		{
			name: "production mode blocks unlisted origin",
			config: &Config{
				EnableDevMode:  false,
				AllowedOrigins: []string{"https://example.com"},
			},
			origin:         "https://malicious.com",
			expectedResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.OriginAllowed(tt.origin)
			assert.Equal(t, tt.expectedResult, result)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	clearTestEnv()

	t.Run("getEnvAsString", func(t *testing.T) {
		assert.Equal(t, "default", getEnvAsString("TEST_STRING", "default"))
		os.Setenv("TEST_STRING", "custom")
		defer os.Unsetenv("TEST_STRING")
		assert.Equal(t, "custom", getEnvAsString("TEST_STRING", "default"))
	})

	t.Run("getEnvAsInt", func(t *testing.T) {
		assert.Equal(t, 42, getEnvAsInt("TEST_INT", 42))
		os.Setenv("TEST_INT", "100")
		defer os.Unsetenv("TEST_INT")
		assert.Equal(t, 100, getEnvAsInt("TEST_INT", 42))

		os.Setenv("TEST_INT_INVALID", "not-a-number")
		defer os.Unsetenv("TEST_INT_INVALID")
		assert.Equal(t, 42, getEnvAsInt("TEST_INT_INVALID", 42))
	})

	t.Run("getEnvAsBool", func(t *testing.T) {
		assert.Equal(t, true, getEnvAsBool("TEST_BOOL", true))
		testCases := []struct {
			value    string
			expected bool
		}{
			{"true", true},
			{"false", false},
			{"1", true},
			{"0", false},
		}
		for _, tc := range testCases {
			os.Setenv("TEST_BOOL", tc.value)
			assert.Equal(t, tc.expected, getEnvAsBool("TEST_BOOL", false), "value: %s", tc.value)
		}
		os.Unsetenv("TEST_BOOL")
	})

	t.Run("getEnvAsDuration", func(t *testing.T) {
		assert.Equal(t, 5*time.Minute, getEnvAsDuration("TEST_DURATION", 5*time.Minute))
		os.Setenv("TEST_DURATION", "2h30m")
		defer os.Unsetenv("TEST_DURATION")
		assert.Equal(t, 2*time.Hour+30*time.Minute, getEnvAsDuration("TEST_DURATION", 5*time.Minute))
	})

	t.Run("getEnvAsStringSlice", func(t *testing.T) {
		defaultSlice := []string{"a", "b"}
		assert.Equal(t, defaultSlice, getEnvAsStringSlice("TEST_SLICE", defaultSlice))
		os.Setenv("TEST_SLICE", "one,two,three")
		defer os.Unsetenv("TEST_SLICE")
		assert.Equal(t, []string{"one", "two", "three"}, getEnvAsStringSlice("TEST_SLICE", defaultSlice))
	})

	t.Run("getEnvAsFloat64", func(t *testing.T) {
		assert.Equal(t, 1.5, getEnvAsFloat64("TEST_FLOAT", 1.5))
		os.Setenv("TEST_FLOAT", "2.5")
		defer os.Unsetenv("TEST_FLOAT")
		assert.Equal(t, 2.5, getEnvAsFloat64("TEST_FLOAT", 1.5))
	})
}

func clearTestEnv() {
	testVars := []string{
		"SST_LISTEN_ADDR", "SST_LOG_LEVEL", "SST_ALLOWED_ORIGINS", "SST_ENABLE_DEV_MODE",
		"SST_REQUEST_TIMEOUT", "SST_SHUTDOWN_TIMEOUT", "SST_SYNC_PARALLEL_ENCODE",
		"SST_IDLE_EMPTY_SECONDS", "SST_JOIN_RATE_PER_SECOND", "SST_JOIN_RATE_BURST",
		"SST_RECORDER_DIR", "SST_RETRY_ENABLED", "SST_RETRY_MAX_ATTEMPTS",
		"SST_RETRY_INITIAL_DELAY", "SST_RETRY_MAX_DELAY", "SST_RETRY_BACKOFF_MULTIPLIER",
		"SST_RETRY_JITTER_PERCENT",
		"TEST_STRING", "TEST_INT", "TEST_INT_INVALID", "TEST_BOOL",
		"TEST_DURATION", "TEST_SLICE", "TEST_FLOAT",
	}
	for _, v := range testVars {
		os.Unsetenv(v)
	}
}
