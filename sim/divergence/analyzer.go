// Package divergence replays a decision trace, asks the rollout search what
// it would have done at each point, and locates and ranks the moments where
// the rule-based policy chose worse than the search. The analyzer is
// advisory: it filters its own search artifacts rather than trusting the
// rollout blindly.
package divergence

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/taherbert/dh-apl-sub006/sim"
	"github.com/taherbert/dh-apl-sub006/sim/trace"
)

// Confidence labels for a divergence.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// Config tunes the analyzer's artifact filters. The defaults are tuned to
// suppress false positives in practice and carry no domain meaning.
type Config struct {
	// NoiseThreshold discards rollout-score deltas below this value.
	NoiseThreshold float64
	// ShortHorizonGCDs is the length, in GCDs, of the secondary branch
	// simulation used to detect the rollout's resource-hoarding bias.
	ShortHorizonGCDs int
	// MinImpactPct restricts the report's "worth validating" shortlist to
	// divergences at or above this estimated aggregate impact.
	MinImpactPct float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		NoiseThreshold:   1.0,
		ShortHorizonGCDs: 4,
		MinImpactPct:     0.5,
	}
}

// Divergence is one point where the trace's actual choice differs from the
// search's best choice by more than the noise threshold.
type Divergence struct {
	GCDIndex int            `json:"gcd"`
	TimeMs   int64          `json:"time_ms"`
	Snapshot trace.Snapshot `json:"snapshot"`

	Optimal      string  `json:"optimal"`
	OptimalScore float64 `json:"optimal_score"` // rollout score forcing Optimal first
	Actual       string  `json:"actual"`
	ActualScore  float64 `json:"actual_score"` // rollout score forcing Actual first
	ActualImmed  float64 `json:"actual_immediate"`

	// Delta = OptimalScore - ActualScore; non-negative by construction.
	Delta float64 `json:"delta"`

	// Count is how often this exact (optimal, actual) pair occurs across
	// the whole trace. ImpactPct estimates the pair's aggregate share of
	// the trace's total score; nil for single-occurrence pairs, since one
	// sample is not attributable.
	Count     int      `json:"count"`
	ImpactPct *float64 `json:"impact_pct,omitempty"`

	Confidence string `json:"confidence"`
	Hint       string `json:"hint"`
}

// Analyzer computes divergences for traces produced under one adapter.
type Analyzer struct {
	adapter sim.Adapter
	rollout *sim.Rollout
	cfg     Config
}

// NewAnalyzer creates an Analyzer. rollout must wrap the same adapter.
func NewAnalyzer(adapter sim.Adapter, rollout *sim.Rollout, cfg Config) *Analyzer {
	if cfg.ShortHorizonGCDs <= 0 {
		cfg.ShortHorizonGCDs = DefaultConfig().ShortHorizonGCDs
	}
	return &Analyzer{adapter: adapter, rollout: rollout, cfg: cfg}
}

// Compute replays every on-GCD trace event, compares the actual choice with
// the rollout's best action, and returns the surviving divergences in trace
// order. Stateless: the same trace always yields the same list.
func (a *Analyzer) Compute(tr *trace.Trace, build sim.BuildConfig) ([]Divergence, error) {
	if tr == nil {
		return nil, fmt.Errorf("nil trace")
	}

	filler := make(map[string]bool)
	for _, id := range a.adapter.FillerAbilities() {
		filler[id] = true
	}

	var out []Divergence
	for _, ev := range tr.Events {
		// Off-GCD actions cost no GCD time; a disagreement there has no
		// opportunity cost to attribute.
		if ev.OffGCD {
			continue
		}

		st := sim.Reconstruct(a.adapter, build, ev.Snapshot, tr.DurationMs)
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("reconstructed state at gcd %d invalid: %w", ev.GCDIndex, err)
		}

		optimal := a.rollout.BestAction(st)
		if optimal == "" || optimal == ev.Ability {
			continue
		}
		// Disagreement between two filler actions is search noise, not a
		// real policy gap.
		if filler[optimal] && filler[ev.Ability] {
			continue
		}

		optScore := a.rollout.Score(st, optimal)
		actScore := a.rollout.Score(st, ev.Ability)
		delta := optScore - actScore
		if delta < a.cfg.NoiseThreshold {
			continue
		}

		out = append(out, Divergence{
			GCDIndex:     ev.GCDIndex,
			TimeMs:       ev.TimeMs,
			Snapshot:     ev.Snapshot,
			Optimal:      optimal,
			OptimalScore: optScore,
			Actual:       ev.Ability,
			ActualScore:  actScore,
			ActualImmed:  a.adapter.ScoreImmediate(st, ev.Ability),
			Delta:        delta,
			Confidence:   a.confidence(st, optimal, ev.Ability),
			Hint:         hintFor(a.adapter, optimal, ev.Ability),
		})
	}

	a.attribute(out, tr.TotalScore)
	logrus.Debugf("divergence analysis: %d events, %d divergences", len(tr.Events), len(out))
	return out, nil
}

// confidence runs the short fixed-horizon branch comparison. When the short
// horizon disagrees in direction with the full rollout, the full rollout's
// preference likely comes from its hoarding bias (value parked late in the
// lookahead that a coordinated policy would not realize), so the divergence
// is labeled low confidence.
func (a *Analyzer) confidence(st *sim.State, optimal, actual string) string {
	horizon := int64(a.cfg.ShortHorizonGCDs) * st.GCDBaseMs
	shortOpt := a.rollout.ScoreHorizon(st, optimal, horizon)
	shortAct := a.rollout.ScoreHorizon(st, actual, horizon)
	if shortOpt <= shortAct {
		return ConfidenceLow
	}
	return ConfidenceHigh
}

// attribute counts identical (optimal, actual) pairs and estimates each
// pair's aggregate impact as delta x count over the trace's total immediate
// score. Single-occurrence pairs carry no percentage.
func (a *Analyzer) attribute(divs []Divergence, totalScore float64) {
	type pair struct{ optimal, actual string }
	counts := make(map[pair]int)
	for _, d := range divs {
		counts[pair{d.Optimal, d.Actual}]++
	}
	for i := range divs {
		d := &divs[i]
		d.Count = counts[pair{d.Optimal, d.Actual}]
		if d.Count > 1 && totalScore > 0 {
			pct := d.Delta * float64(d.Count) / totalScore * 100.0
			d.ImpactPct = &pct
		}
	}
}
