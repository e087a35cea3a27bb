package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// Definitions is the shape of the optional YAML seed file: instance and
// widget definitions loaded at startup. Explicit definitions from this file
// take precedence over environment-derived connector defaults.
type Definitions struct {
	Instances []models.SystemInstance `yaml:"instances"`
	Widgets   []models.Widget         `yaml:"widgets"`
}

// LoadDefinitions parses a seed definitions file and validates every entry.
func LoadDefinitions(path string) (*Definitions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions file: %w", err)
	}

	var defs Definitions
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parsing definitions file %s: %w", path, err)
	}

	for i := range defs.Instances {
		if err := defs.Instances[i].Validate(); err != nil {
			return nil, fmt.Errorf("definitions file %s: instance %q: %w", path, defs.Instances[i].InstanceID, err)
		}
	}
	for i := range defs.Widgets {
		if defs.Widgets[i].ID == "" {
			return nil, fmt.Errorf("definitions file %s: widget %q: id is required", path, defs.Widgets[i].Name)
		}
		if err := defs.Widgets[i].Validate(); err != nil {
			return nil, fmt.Errorf("definitions file %s: widget %q: %w", path, defs.Widgets[i].ID, err)
		}
	}

	return &defs, nil
}
