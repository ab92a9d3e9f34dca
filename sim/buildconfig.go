package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BuildConfig is an externally produced record of character customization
// (talent selections, numeric knobs) that parameterizes state creation and
// adapter behavior. The engine treats it as opaque and never mutates it.
type BuildConfig struct {
	Name    string             `yaml:"name" json:"name"`
	Talents map[string]bool    `yaml:"talents" json:"talents,omitempty"`
	Params  map[string]float64 `yaml:"params" json:"params,omitempty"`
}

// Talent reports whether the named talent is selected.
func (c BuildConfig) Talent(name string) bool {
	return c.Talents[name]
}

// Param returns the named numeric parameter, or fallback when unset.
func (c BuildConfig) Param(name string, fallback float64) float64 {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return fallback
}

// LoadBuildConfig reads and parses a YAML build configuration file.
func LoadBuildConfig(path string) (BuildConfig, error) {
	var cfg BuildConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading build config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing build config: %w", err)
	}
	return cfg, nil
}
