// Package spec provides the catalog-driven Adapter implementation: game
// mechanics described as data in a YAML ability catalog rather than code.
// It is the sole place spec-specific behavior lives; the engine, search, and
// interpreter stay spec-agnostic.
package spec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultGCDMs is the base global-cooldown length used when a catalog does
// not override it.
const DefaultGCDMs = 1500

// ResourceDef declares one resource pool.
type ResourceDef struct {
	Name        string  `yaml:"name"`
	Cap         float64 `yaml:"cap"`
	Initial     float64 `yaml:"initial"`
	RegenPerSec float64 `yaml:"regen_per_sec"`
}

// BuffDef declares one buff and its passive effects while active.
// Zero-valued multipliers mean "no effect" (treated as 1.0).
type BuffDef struct {
	Name      string  `yaml:"name"`
	GCDMult   float64 `yaml:"gcd_mult"`
	ScoreMult float64 `yaml:"score_mult"`
	MaxStacks int     `yaml:"max_stacks"`
}

// TalentModifier adjusts an ability when the named talent is selected.
type TalentModifier struct {
	Talent        string             `yaml:"talent"`
	ScoreMult     float64            `yaml:"score_mult"`
	CostAdd       map[string]float64 `yaml:"cost_add"`
	CooldownAddMs int64              `yaml:"cooldown_add_ms"`
}

// AbilityDef declares one ability: identity, resource cost/generation,
// cooldown/charges, immediate score, and the auras it applies.
type AbilityDef struct {
	ID             string             `yaml:"id"`
	Score          float64            `yaml:"score"`
	Cost           map[string]float64 `yaml:"cost"`
	Gain           map[string]float64 `yaml:"gain"`
	GCDMs          int64              `yaml:"gcd_ms"` // 0 = catalog default
	OffGCD         bool               `yaml:"off_gcd"`
	CooldownMs     int64              `yaml:"cooldown_ms"`
	Charges        int                `yaml:"charges"` // 0 = 1 when cooldown set
	AppliesBuff    string             `yaml:"applies_buff"`
	BuffDurationMs int64              `yaml:"buff_duration_ms"`
	BuffStacks     int                `yaml:"buff_stacks"` // stacks added per cast, 0 = 1
	AppliesDot     string             `yaml:"applies_dot"`
	DotDurationMs  int64              `yaml:"dot_duration_ms"`
	RequiresTalent string             `yaml:"requires_talent"`
	Filler         bool               `yaml:"filler"`
	Modifiers      []TalentModifier   `yaml:"modifiers"`
}

// Catalog is a complete spec description, loadable from a YAML file.
// Ability declaration order is significant: it is the deterministic order
// Available() reports and the tie-break order of the rollout search.
type Catalog struct {
	Name      string        `yaml:"name"`
	GCDMs     int64         `yaml:"gcd_ms"`
	Resources []ResourceDef `yaml:"resources"`
	Buffs     []BuffDef     `yaml:"buffs"`
	Abilities []AbilityDef  `yaml:"abilities"`
}

// LoadCatalog reads and parses a YAML ability catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks internal consistency: unique ability ids, declared
// resource and buff references, sane numeric ranges.
func (c *Catalog) Validate() error {
	if len(c.Abilities) == 0 {
		return fmt.Errorf("catalog declares no abilities")
	}

	resources := make(map[string]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r.Name == "" {
			return fmt.Errorf("resource with empty name")
		}
		if resources[r.Name] {
			return fmt.Errorf("duplicate resource %q", r.Name)
		}
		if r.Cap <= 0 {
			return fmt.Errorf("resource %q cap must be positive, got %f", r.Name, r.Cap)
		}
		if r.Initial < 0 || r.Initial > r.Cap {
			return fmt.Errorf("resource %q initial %f not in [0, %f]", r.Name, r.Initial, r.Cap)
		}
		resources[r.Name] = true
	}

	buffs := make(map[string]bool, len(c.Buffs))
	for _, b := range c.Buffs {
		if b.Name == "" {
			return fmt.Errorf("buff with empty name")
		}
		if buffs[b.Name] {
			return fmt.Errorf("duplicate buff %q", b.Name)
		}
		if b.GCDMult < 0 || b.ScoreMult < 0 {
			return fmt.Errorf("buff %q has negative multiplier", b.Name)
		}
		buffs[b.Name] = true
	}

	ids := make(map[string]bool, len(c.Abilities))
	for _, a := range c.Abilities {
		if a.ID == "" {
			return fmt.Errorf("ability with empty id")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate ability %q", a.ID)
		}
		ids[a.ID] = true

		for name := range a.Cost {
			if !resources[name] {
				return fmt.Errorf("ability %q costs undeclared resource %q", a.ID, name)
			}
		}
		for name := range a.Gain {
			if !resources[name] {
				return fmt.Errorf("ability %q gains undeclared resource %q", a.ID, name)
			}
		}
		if a.AppliesBuff != "" {
			if !buffs[a.AppliesBuff] {
				return fmt.Errorf("ability %q applies undeclared buff %q", a.ID, a.AppliesBuff)
			}
			if a.BuffDurationMs <= 0 {
				return fmt.Errorf("ability %q applies buff %q with no duration", a.ID, a.AppliesBuff)
			}
		}
		if a.AppliesDot != "" && a.DotDurationMs <= 0 {
			return fmt.Errorf("ability %q applies dot %q with no duration", a.ID, a.AppliesDot)
		}
		if a.CooldownMs < 0 || a.GCDMs < 0 {
			return fmt.Errorf("ability %q has negative timer", a.ID)
		}
		if a.Charges < 0 {
			return fmt.Errorf("ability %q has negative charges", a.ID)
		}
		if a.Charges > 0 && a.CooldownMs == 0 {
			return fmt.Errorf("ability %q declares charges without a cooldown", a.ID)
		}
	}
	return nil
}

// buff returns the definition of the named buff, if declared.
func (c *Catalog) buff(name string) (BuffDef, bool) {
	for _, b := range c.Buffs {
		if b.Name == name {
			return b, true
		}
	}
	return BuffDef{}, false
}
