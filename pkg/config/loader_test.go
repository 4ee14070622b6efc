package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/opd-ai/landkeep/pkg/integration"
	"github.com/opd-ai/landkeep/pkg/resilience"
	"github.com/opd-ai/landkeep/pkg/retry"
)

// resetCircuitBreakerForTesting clears the config_loader circuit breaker's
// state between test cases so a failure in one test doesn't trip the breaker
// for the next. It drops the global manager's "config_loader" entry and
// replaces integration.ConfigLoaderExecutor, whose own breaker is the one
// LoadLandTypeManifest goes through.
func resetCircuitBreakerForTesting() {
	resilience.GetGlobalCircuitBreakerManager().Remove("config_loader")
	integration.ConfigLoaderExecutor = integration.NewResilientExecutor(resilience.ConfigLoaderConfig, retry.DefaultRetryConfig())
}

func TestLoadLandTypeManifest_ValidYAMLFile(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()
	manifestFile := filepath.Join(tempDir, "manifest.yaml")

	content := `
overworld:
  displayName: "The Overworld"
dungeon_01:
  displayName: "Sunken Crypt"
`
	if err := os.WriteFile(manifestFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	manifest, err := LoadLandTypeManifest(manifestFile)
	if err != nil {
		t.Fatalf("LoadLandTypeManifest failed: %v", err)
	}
	if len(manifest) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(manifest))
	}
	if got := manifest["overworld"].DisplayName; got != "The Overworld" {
		t.Errorf("overworld displayName = %q, want %q", got, "The Overworld")
	}
	if got := manifest["dungeon_01"].DisplayName; got != "Sunken Crypt" {
		t.Errorf("dungeon_01 displayName = %q, want %q", got, "Sunken Crypt")
	}
}

func TestLoadLandTypeManifest_EmptyYAMLFile(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()
	emptyFile := filepath.Join(tempDir, "empty.yaml")
	if err := os.WriteFile(emptyFile, []byte(""), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	manifest, err := LoadLandTypeManifest(emptyFile)
	if err != nil {
		t.Fatalf("LoadLandTypeManifest failed on empty file: %v", err)
	}
	if len(manifest) != 0 {
		t.Errorf("expected empty manifest, got %d entries", len(manifest))
	}
}

func TestLoadLandTypeManifest_FileNotFound(t *testing.T) {
	resetCircuitBreakerForTesting()

	_, err := LoadLandTypeManifest(filepath.Join(t.TempDir(), "does_not_exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file, got nil")
	}
}

func TestLoadLandTypeManifest_InvalidYAMLSyntax(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()
	invalidFile := filepath.Join(tempDir, "invalid.yaml")
	content := "overworld: [unterminated"
	if err := os.WriteFile(invalidFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	_, err := LoadLandTypeManifest(invalidFile)
	if err == nil {
		t.Fatal("expected an error for invalid YAML syntax, got nil")
	}
}

func TestLoadLandTypeManifest_PartiallyValidYAML(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()
	partialFile := filepath.Join(tempDir, "partial.yaml")
	content := `
overworld:
  displayName: "The Overworld"
orphaned_land:
`
	if err := os.WriteFile(partialFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	manifest, err := LoadLandTypeManifest(partialFile)
	if err != nil {
		t.Fatalf("LoadLandTypeManifest failed: %v", err)
	}
	if got := manifest["overworld"].DisplayName; got != "The Overworld" {
		t.Errorf("overworld displayName = %q, want %q", got, "The Overworld")
	}
	if got := manifest["orphaned_land"].DisplayName; got != "" {
		t.Errorf("orphaned_land displayName = %q, want empty", got)
	}
}

func TestLoadLandTypeManifest_PermissionDenied(t *testing.T) {
	resetCircuitBreakerForTesting()

	if os.Geteuid() == 0 {
		t.Skip("running as root, permission checks do not apply")
	}

	tempDir := t.TempDir()
	restrictedFile := filepath.Join(tempDir, "restricted.yaml")
	if err := os.WriteFile(restrictedFile, []byte("overworld:\n  displayName: x\n"), 0o000); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	defer os.Chmod(restrictedFile, 0o644)

	_, err := LoadLandTypeManifest(restrictedFile)
	if err == nil {
		t.Fatal("expected a permission error, got nil")
	}
}

func TestLoadLandTypeManifest_TableDriven(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError bool
		checkFunc   func(t *testing.T, manifest LandTypeManifest)
	}{
		{
			name:    "single entry",
			content: "overworld:\n  displayName: \"Overworld\"\n",
			checkFunc: func(t *testing.T, manifest LandTypeManifest) {
				if len(manifest) != 1 {
					t.Errorf("expected 1 entry, got %d", len(manifest))
				}
			},
		},
		{
			name:    "multiple entries",
			content: "a:\n  displayName: \"A\"\nb:\n  displayName: \"B\"\nc:\n  displayName: \"C\"\n",
			checkFunc: func(t *testing.T, manifest LandTypeManifest) {
				if len(manifest) != 3 {
					t.Errorf("expected 3 entries, got %d", len(manifest))
				}
			},
		},
		{
			name:        "malformed mapping",
			content:     "a: [not, a, mapping]\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetCircuitBreakerForTesting()

			tempDir := t.TempDir()
			file := filepath.Join(tempDir, "manifest.yaml")
			if err := os.WriteFile(file, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to create test file: %v", err)
			}

			manifest, err := LoadLandTypeManifest(file)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadLandTypeManifest failed: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, manifest)
			}
		})
	}
}

func TestLoadLandTypeManifest_LargeFile(t *testing.T) {
	resetCircuitBreakerForTesting()

	tempDir := t.TempDir()
	largeFile := filepath.Join(tempDir, "large.yaml")

	f, err := os.Create(largeFile)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	const count = 1000
	for i := 0; i < count; i++ {
		if _, err := f.WriteString("land_" + strconv.Itoa(i) + ":\n  displayName: \"Land " + strconv.Itoa(i) + "\"\n"); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close test file: %v", err)
	}

	manifest, err := LoadLandTypeManifest(largeFile)
	if err != nil {
		t.Fatalf("LoadLandTypeManifest failed: %v", err)
	}
	if len(manifest) != count {
		t.Errorf("expected %d entries, got %d", count, len(manifest))
	}
}
