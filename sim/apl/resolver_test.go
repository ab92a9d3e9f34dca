package apl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taherbert/dh-apl-sub006/sim"
)

func resolverFixture() (*Resolver, *sim.State) {
	st := sim.NewState(300000, 1500)
	st.Resources["fury"] = &sim.Resource{Current: 45, Cap: 120}
	st.Buffs["metamorphosis"] = &sim.Aura{RemainsMs: 8000, Stacks: 1}
	st.Dots["immolation"] = &sim.Aura{RemainsMs: 2500, Stacks: 3}
	st.Cooldowns["eye_beam"] = &sim.Cooldown{RemainingMs: 12000, Charges: 0, MaxCharges: 1, RechargeMs: 30000}
	st.Cooldowns["fel_rush"] = &sim.Cooldown{RemainingMs: 4000, Charges: 1, MaxCharges: 2, RechargeMs: 10000}
	st.ClockMs = 60000

	cfg := sim.BuildConfig{Talents: map[string]bool{"blind_fury": true, "demonic": false}}
	r := NewResolver(st, cfg)
	r.Bind(st)
	return r, st
}

func TestResolver_Paths(t *testing.T) {
	r, _ := resolverFixture()
	vars := map[string]float64{"pooling": 1}

	cases := []struct {
		path string
		want float64
	}{
		{"fury", 45},
		{"fury.deficit", 75},
		{"fury.max", 120},
		{"fury.pct", 37.5},
		{"buff.metamorphosis.up", 1},
		{"buff.metamorphosis.down", 0},
		{"buff.metamorphosis.remains", 8},
		{"buff.metamorphosis.stack", 1},
		{"buff.missing.up", 0},
		{"buff.missing.down", 1},
		{"buff.missing.remains", 0},
		{"buff.missing.stacks", 0},
		{"dot.immolation.ticking", 1},
		{"dot.immolation.up", 1},
		{"dot.immolation.remains", 2.5},
		{"debuff.immolation.ticking", 1},
		{"dot.missing.ticking", 0},
		{"cooldown.eye_beam.ready", 0},
		{"cooldown.eye_beam.remains", 12},
		{"cooldown.eye_beam.charges", 0},
		{"cooldown.eye_beam.duration", 30},
		{"cooldown.fel_rush.ready", 1},
		{"cooldown.fel_rush.remains", 0}, // a charge is up
		{"cooldown.fel_rush.charges", 1},
		{"cooldown.demons_bite.ready", 1}, // no entry = always ready
		{"cooldown.demons_bite.remains", 0},
		{"cooldown.demons_bite.charges", 1},
		{"talent.blind_fury", 1},
		{"talent.blind_fury.enabled", 1},
		{"talent.demonic", 0},
		{"talent.unknown", 0},
		{"variable.pooling", 1},
		{"time", 60},
		{"fight_remains", 240},
		{"gcd.max", 1.5},
		{"gcd.remains", 0},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := r.Resolve(tc.path, vars)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	r, _ := resolverFixture()

	cases := []struct {
		path string
		want string
	}{
		{"rage", "unknown field path"},
		{"fury.bogus", "unknown resource field"},
		{"buff.metamorphosis", "malformed buff path"},
		{"buff.metamorphosis.bogus", "unknown buff field"},
		{"cooldown.eye_beam", "malformed cooldown path"},
		{"cooldown.eye_beam.bogus", "unknown cooldown field"},
		{"cooldown.demons_bite.bogus", "unknown cooldown field"},
		{"variable.unset", "read before assignment"},
		{"time.elapsed", "unknown field path"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			_, err := r.Resolve(tc.path, map[string]float64{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestResolver_UnboundState(t *testing.T) {
	r := &Resolver{}
	_, err := r.Resolve("time", nil)
	assert.ErrorContains(t, err, "not bound")
}

func TestResolver_RebindTracksState(t *testing.T) {
	r, st := resolverFixture()

	later := st.Clone()
	later.ClockMs = 120000
	later.Resources["fury"].Current = 0
	r.Bind(later)

	got, err := r.Resolve("time", nil)
	require.NoError(t, err)
	assert.Equal(t, 120.0, got)
	got, err = r.Resolve("fury", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}
