package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/landkeep/pkg/resilience"
)

// TestLoadLandTypeManifestWithCircuitBreakerProtection exercises
// LoadLandTypeManifest's circuit-breaker and retry wrapping end to end.
func TestLoadLandTypeManifestWithCircuitBreakerProtection(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()

	validFile := filepath.Join(tempDir, "valid.yaml")
	validContent := `
overworld:
  displayName: "Test Land"
`
	if err := os.WriteFile(validFile, []byte(validContent), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	manifest, err := LoadLandTypeManifest(validFile)
	if err != nil {
		t.Fatalf("expected successful load, got error: %v", err)
	}
	if len(manifest) != 1 {
		t.Errorf("expected 1 entry, got %d", len(manifest))
	}

	nonExistentFile := filepath.Join(tempDir, "does_not_exist.yaml")
	_, err = LoadLandTypeManifest(nonExistentFile)
	if err == nil {
		t.Error("expected error when loading non-existent file")
	}
	errorStr := strings.ToLower(err.Error())
	if !strings.Contains(errorStr, "no such file") && !strings.Contains(errorStr, "operation failed") {
		t.Errorf("expected file-not-found or operation-failed error, got: %v", err)
	}

	invalidFile := filepath.Join(tempDir, "invalid.yaml")
	invalidContent := `invalid_yaml: [unclosed_bracket`
	if err := os.WriteFile(invalidFile, []byte(invalidContent), 0o644); err != nil {
		t.Fatalf("failed to create invalid test file: %v", err)
	}

	_, err = LoadLandTypeManifest(invalidFile)
	if err == nil {
		t.Error("expected error when parsing invalid YAML")
	}
	errorStr = strings.ToLower(err.Error())
	if !strings.Contains(errorStr, "yaml") && !strings.Contains(errorStr, "unmarshal") && !strings.Contains(errorStr, "operation failed") {
		t.Errorf("expected YAML-parsing or operation-failed error, got: %v", err)
	}
}

// TestConfigLoaderCircuitBreakerConfiguration asserts the preset the loader
// shares with pkg/integration's ExecuteConfigOperation.
func TestConfigLoaderCircuitBreakerConfiguration(t *testing.T) {
	resetCircuitBreakerForTesting()

	manager := resilience.GetGlobalCircuitBreakerManager()
	cb := manager.GetOrCreate("config_loader", &resilience.ConfigLoaderConfig)
	config := resilience.ConfigLoaderConfig

	if config.MaxFailures != 2 {
		t.Errorf("expected MaxFailures to be 2, got %d", config.MaxFailures)
	}
	if config.Timeout != 15*time.Second {
		t.Errorf("expected Timeout to be 15s, got %v", config.Timeout)
	}
	if config.Name != "config_loader" {
		t.Errorf("expected Name to be 'config_loader', got %s", config.Name)
	}
	if cb.GetState() != resilience.StateClosed {
		t.Errorf("expected initial state to be closed, got %s", cb.GetState())
	}
}

// TestCircuitBreakerRecovery forces the config_loader breaker open and
// confirms it reports StateOpen until its timeout elapses.
func TestCircuitBreakerRecovery(t *testing.T) {
	resetCircuitBreakerForTesting()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = resilience.ExecuteWithConfigLoaderCircuitBreaker(ctx, func(ctx context.Context) error {
			return fmt.Errorf("failure %d", i)
		})
	}

	manager := resilience.GetGlobalCircuitBreakerManager()
	cb := manager.GetOrCreate("config_loader", &resilience.ConfigLoaderConfig)

	if cb.GetState() != resilience.StateOpen {
		t.Errorf("expected circuit breaker to be open, got %s", cb.GetState())
	}
}
