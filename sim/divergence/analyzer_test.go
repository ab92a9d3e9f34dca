package divergence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taherbert/dh-apl-sub006/sim"
	"github.com/taherbert/dh-apl-sub006/sim/apl"
	"github.com/taherbert/dh-apl-sub006/sim/spec"
	"github.com/taherbert/dh-apl-sub006/sim/trace"
)

// analyzerCatalog is a two-ability kit where hoarding is visibly wrong: the
// spender is worth ten generators, so any GCD spent generating past 40 energy
// is a policy gap.
func analyzerCatalog() *spec.Catalog {
	return &spec.Catalog{
		Name:  "analyzer_toy",
		GCDMs: 1500,
		Resources: []spec.ResourceDef{
			{Name: "energy", Cap: 100},
		},
		Abilities: []spec.AbilityDef{
			{ID: "generator_a", Score: 10, Gain: map[string]float64{"energy": 10}, Filler: true},
			{ID: "spender_b", Score: 100, Cost: map[string]float64{"energy": 40}},
		},
	}
}

func analyzerFixture(t *testing.T, c *spec.Catalog, aplText string, durationMs int64) (*Analyzer, *trace.Trace) {
	t.Helper()
	adapter, err := spec.NewAdapter(c, sim.BuildConfig{})
	require.NoError(t, err)

	rs, err := apl.Parse(aplText)
	require.NoError(t, err)
	tr, err := apl.NewRunner(adapter, apl.DefaultRunnerConfig()).Run(rs, sim.BuildConfig{}, durationMs)
	require.NoError(t, err)

	// a one-GCD horizon makes the rollout score exactly the immediate score,
	// keeping the expected deltas easy to verify by hand
	rollout := sim.NewRollout(adapter, sim.RolloutConfig{HorizonMs: 1500})
	return NewAnalyzer(adapter, rollout, DefaultConfig()), tr
}

func TestAnalyzer_FlagsHoardingPolicy(t *testing.T) {
	// always-generate: correct until 40 energy, wrong on every GCD after
	a, tr := analyzerFixture(t, analyzerCatalog(), "actions=generator_a", 15000)

	divs, err := a.Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	require.Len(t, divs, 6)

	first := divs[0]
	assert.Equal(t, 4, first.GCDIndex)
	assert.Equal(t, int64(6000), first.TimeMs)
	assert.Equal(t, "spender_b", first.Optimal)
	assert.Equal(t, "generator_a", first.Actual)
	assert.Equal(t, 100.0, first.OptimalScore)
	assert.Equal(t, 10.0, first.ActualScore)
	assert.Equal(t, 10.0, first.ActualImmed)
	assert.Equal(t, 90.0, first.Delta)
	assert.Contains(t, first.Hint, "overcap")

	// every occurrence of the same (optimal, actual) pair is counted and the
	// pair's aggregate impact is attributed
	for _, d := range divs {
		assert.Equal(t, 6, d.Count)
		require.NotNil(t, d.ImpactPct)
		assert.InDelta(t, 540.0, *d.ImpactPct, 1e-9) // 90 * 6 / 100 total * 100
		assert.GreaterOrEqual(t, d.Delta, 0.0)
	}

	// results come back in trace order
	for i := 1; i < len(divs); i++ {
		assert.Greater(t, divs[i].GCDIndex, divs[i-1].GCDIndex)
	}
}

func TestAnalyzer_CleanPolicyHasNoDivergences(t *testing.T) {
	a, tr := analyzerFixture(t, analyzerCatalog(), `
actions=spender_b,if=energy>=40
actions+=/generator_a
`, 15000)

	divs, err := a.Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	assert.Empty(t, divs)
}

func TestAnalyzer_Idempotent(t *testing.T) {
	a, tr := analyzerFixture(t, analyzerCatalog(), "actions=generator_a", 15000)

	first, err := a.Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	second, err := a.Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)

	j1, err := json.Marshal(first)
	require.NoError(t, err)
	j2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, j1, j2, "same trace must yield byte-identical analysis")
}

func TestAnalyzer_SuppressesFillerDisagreements(t *testing.T) {
	c := &spec.Catalog{
		Name:  "fillers",
		GCDMs: 1500,
		Abilities: []spec.AbilityDef{
			{ID: "filler_x", Score: 10, Filler: true},
			{ID: "filler_y", Score: 30, Filler: true},
		},
	}
	// the search prefers filler_y, but a filler-vs-filler disagreement is
	// search noise, not a policy gap
	a, tr := analyzerFixture(t, c, "actions=filler_x", 6000)

	divs, err := a.Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	assert.Empty(t, divs)
}

func TestAnalyzer_NoiseThreshold(t *testing.T) {
	c := &spec.Catalog{
		Name:  "noise",
		GCDMs: 1500,
		Abilities: []spec.AbilityDef{
			{ID: "hit_a", Score: 10},
			{ID: "hit_b", Score: 10.5},
		},
	}
	adapter, err := spec.NewAdapter(c, sim.BuildConfig{})
	require.NoError(t, err)
	rs, err := apl.Parse("actions=hit_a")
	require.NoError(t, err)
	tr, err := apl.NewRunner(adapter, apl.DefaultRunnerConfig()).Run(rs, sim.BuildConfig{}, 6000)
	require.NoError(t, err)

	rollout := sim.NewRollout(adapter, sim.RolloutConfig{HorizonMs: 1500})

	// a 0.5 delta disappears under the default 1.0 threshold
	divs, err := NewAnalyzer(adapter, rollout, DefaultConfig()).Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	assert.Empty(t, divs)

	// and survives a tighter one
	tight := DefaultConfig()
	tight.NoiseThreshold = 0.1
	divs, err = NewAnalyzer(adapter, rollout, tight).Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	require.NotEmpty(t, divs)
	assert.Equal(t, "hit_b", divs[0].Optimal)
	assert.InDelta(t, 0.5, divs[0].Delta, 1e-9)
}

func TestAnalyzer_SkipsOffGCDEvents(t *testing.T) {
	adapter, err := spec.NewAdapter(analyzerCatalog(), sim.BuildConfig{})
	require.NoError(t, err)
	rollout := sim.NewRollout(adapter, sim.RolloutConfig{HorizonMs: 1500})
	a := NewAnalyzer(adapter, rollout, DefaultConfig())

	tr := trace.New("key", "hash", 15000)
	tr.Record(trace.Event{
		GCDIndex: 0,
		Ability:  "generator_a",
		OffGCD:   true,
		Snapshot: trace.Snapshot{Resources: map[string]float64{"energy": 80}},
	}, 10)

	divs, err := a.Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	assert.Empty(t, divs)
}

func TestAnalyzer_NilTrace(t *testing.T) {
	adapter, err := spec.NewAdapter(analyzerCatalog(), sim.BuildConfig{})
	require.NoError(t, err)
	a := NewAnalyzer(adapter, sim.NewRollout(adapter, sim.DefaultRolloutConfig()), DefaultConfig())

	_, err = a.Compute(nil, sim.BuildConfig{})
	assert.Error(t, err)
}

func TestAnalyzer_ShortHorizonConfidenceCheck(t *testing.T) {
	// a held burst ability early in the fight can still be recovered inside
	// the four-GCD check window, so those divergences tie and are labeled
	// low confidence; the hold on the last GCD before the fight ends cannot
	// be recovered and is labeled high
	c := &spec.Catalog{
		Name:  "burst",
		GCDMs: 1500,
		Abilities: []spec.AbilityDef{
			{ID: "filler", Score: 10, Filler: true},
			{ID: "big_burst", Score: 500, CooldownMs: 60000},
		},
	}
	a, tr := analyzerFixture(t, c, "actions=filler", 6000)

	divs, err := a.Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	require.Len(t, divs, 4)
	for _, d := range divs {
		assert.Equal(t, "big_burst", d.Optimal)
	}
	assert.Equal(t, ConfidenceLow, divs[0].Confidence)
	assert.Equal(t, ConfidenceHigh, divs[3].Confidence)
}

func TestAnalyzer_HoardingBiasLabeledLowConfidence(t *testing.T) {
	// at exactly 40 energy the short-horizon branches tie (spend-then-build
	// equals build-then-spend over four GCDs), so the full rollout's
	// preference is flagged as potentially its own hoarding artifact
	a, tr := analyzerFixture(t, analyzerCatalog(), "actions=generator_a", 15000)

	divs, err := a.Compute(tr, sim.BuildConfig{})
	require.NoError(t, err)
	require.NotEmpty(t, divs)
	assert.Equal(t, ConfidenceLow, divs[0].Confidence)
}
