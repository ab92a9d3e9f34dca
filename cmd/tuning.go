package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taherbert/dh-apl-sub006/sim"
	"github.com/taherbert/dh-apl-sub006/sim/apl"
	"github.com/taherbert/dh-apl-sub006/sim/divergence"
)

// TuningBundle holds analyzer and search knobs, loadable from a YAML file.
// Nil pointer fields mean "not set in YAML" and do not override the
// tuned defaults. None of these values carry domain meaning; they exist to
// suppress false positives in practice.
type TuningBundle struct {
	Rollout struct {
		HorizonMs     *int64 `yaml:"horizon_ms"`
		WaitTickMs    *int64 `yaml:"wait_tick_ms"`
		MaxIterations *int   `yaml:"max_iterations"`
	} `yaml:"rollout"`
	Runner struct {
		WaitTickMs     *int64 `yaml:"wait_tick_ms"`
		MaxOffGCDChain *int   `yaml:"max_off_gcd_chain"`
	} `yaml:"runner"`
	Analyzer struct {
		NoiseThreshold   *float64 `yaml:"noise_threshold"`
		ShortHorizonGCDs *int     `yaml:"short_horizon_gcds"`
		MinImpactPct     *float64 `yaml:"min_impact_pct"`
	} `yaml:"analyzer"`
}

// LoadTuning reads and parses a YAML tuning file.
func LoadTuning(path string) (*TuningBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tuning config: %w", err)
	}
	var bundle TuningBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing tuning config: %w", err)
	}
	return &bundle, nil
}

// RolloutConfig merges the bundle over the tuned defaults.
func (t *TuningBundle) RolloutConfig() sim.RolloutConfig {
	cfg := sim.DefaultRolloutConfig()
	if t == nil {
		return cfg
	}
	if t.Rollout.HorizonMs != nil {
		cfg.HorizonMs = *t.Rollout.HorizonMs
	}
	if t.Rollout.WaitTickMs != nil {
		cfg.WaitTickMs = *t.Rollout.WaitTickMs
	}
	if t.Rollout.MaxIterations != nil {
		cfg.MaxIterations = *t.Rollout.MaxIterations
	}
	return cfg
}

// RunnerConfig merges the bundle over the tuned defaults.
func (t *TuningBundle) RunnerConfig() apl.RunnerConfig {
	cfg := apl.DefaultRunnerConfig()
	if t == nil {
		return cfg
	}
	if t.Runner.WaitTickMs != nil {
		cfg.WaitTickMs = *t.Runner.WaitTickMs
	}
	if t.Runner.MaxOffGCDChain != nil {
		cfg.MaxOffGCDChain = *t.Runner.MaxOffGCDChain
	}
	return cfg
}

// AnalyzerConfig merges the bundle over the tuned defaults.
func (t *TuningBundle) AnalyzerConfig() divergence.Config {
	cfg := divergence.DefaultConfig()
	if t == nil {
		return cfg
	}
	if t.Analyzer.NoiseThreshold != nil {
		cfg.NoiseThreshold = *t.Analyzer.NoiseThreshold
	}
	if t.Analyzer.ShortHorizonGCDs != nil {
		cfg.ShortHorizonGCDs = *t.Analyzer.ShortHorizonGCDs
	}
	if t.Analyzer.MinImpactPct != nil {
		cfg.MinImpactPct = *t.Analyzer.MinImpactPct
	}
	return cfg
}
