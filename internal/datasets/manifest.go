package datasets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ceyeborg/virusradar/internal/config"
)

// manifest is the on-disk YAML form of a dataset source list. It lets
// deployments override the built-in RKI sources without touching the main
// configuration file.
type manifest struct {
	Sources []config.DatasetSource `yaml:"sources"`
}

// LoadManifest reads dataset sources from a YAML manifest file.
func LoadManifest(path string) ([]config.DatasetSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse dataset manifest %s: %w", path, err)
	}

	if len(m.Sources) == 0 {
		return nil, fmt.Errorf("dataset manifest %s lists no sources", path)
	}

	for i, src := range m.Sources {
		if src.Name == "" || src.URL == "" || src.Filename == "" {
			return nil, fmt.Errorf("dataset manifest %s: source %d is missing name, url or filename", path, i)
		}
	}

	return m.Sources, nil
}
