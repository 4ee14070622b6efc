package config

import (
	"context"
	"os"

	"github.com/opd-ai/landkeep/pkg/integration"

	"gopkg.in/yaml.v3"
)

// LandTypeManifestEntry is one land type's operator-facing metadata. It
// exists purely for operational visibility (listAllLands/health check
// rendering); it never substitutes
// for the in-process LandTypeRegistry, which alone holds the actual
// land.Definition/initial-state constructor (those are Go functions and are
// not YAML-representable).
type LandTypeManifestEntry struct {
	DisplayName string `yaml:"displayName"`
}

// LandTypeManifest maps landType to its manifest entry.
type LandTypeManifest map[string]LandTypeManifestEntry

// LoadLandTypeManifest loads a LandTypeManifest from a YAML file. This
// function is protected by both circuit breaker and retry patterns to
// prevent cascade failures and handle transient file system issues, the
// same resilience treatment applied to other config loaders in this
// module.
func LoadLandTypeManifest(filename string) (LandTypeManifest, error) {
	var manifest LandTypeManifest
	ctx := context.Background()

	err := integration.ExecuteConfigOperation(ctx, func(ctx context.Context) error {
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, &manifest)
	})
	if err != nil {
		return nil, err
	}
	return manifest, nil
}
