package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taherbert/dh-apl-sub006/sim"
)

func newTestAdapter(t *testing.T, build sim.BuildConfig) *Adapter {
	t.Helper()
	a, err := NewAdapter(validCatalog(), build)
	require.NoError(t, err)
	return a
}

func TestAdapter_NewAdapterRejectsInvalidCatalog(t *testing.T) {
	c := validCatalog()
	c.Abilities[0].ID = c.Abilities[1].ID
	_, err := NewAdapter(c, sim.BuildConfig{})
	assert.ErrorContains(t, err, "invalid catalog")
}

func TestAdapter_CreateInitialState(t *testing.T) {
	a := newTestAdapter(t, sim.BuildConfig{})
	st := a.CreateInitialState(sim.BuildConfig{}, 300000)

	assert.Equal(t, 20.0, st.Resources["fury"].Current)
	assert.Equal(t, 120.0, st.Resources["fury"].Cap)
	assert.Equal(t, 10.0, st.Resources["energy"].RegenPerSec)
	assert.Equal(t, int64(1500), st.GCDBaseMs)

	// only abilities with cooldowns get cooldown entries, charges full
	assert.NotContains(t, st.Cooldowns, "demons_bite")
	assert.Equal(t, 1, st.Cooldowns["eye_beam"].Charges)
	assert.Equal(t, 2, st.Cooldowns["immolation_aura"].Charges)
	assert.Equal(t, int64(15000), st.Cooldowns["immolation_aura"].RechargeMs)
}

func TestAdapter_CreateInitialState_ParamOverride(t *testing.T) {
	a := newTestAdapter(t, sim.BuildConfig{})
	st := a.CreateInitialState(sim.BuildConfig{
		Params: map[string]float64{"initial.fury": 80, "initial.energy": 999},
	}, 300000)

	assert.Equal(t, 80.0, st.Resources["fury"].Current)
	assert.Equal(t, 100.0, st.Resources["energy"].Current) // clamped to cap
}

func TestAdapter_Available_DeclarationOrder(t *testing.T) {
	a := newTestAdapter(t, sim.BuildConfig{})
	st := a.CreateInitialState(sim.BuildConfig{}, 300000)
	st.Resources["fury"].Current = 100

	assert.Equal(t,
		[]string{"demons_bite", "chaos_strike", "eye_beam", "immolation_aura"},
		a.Available(st))

	st.Resources["fury"].Current = 0
	assert.Equal(t, []string{"demons_bite", "immolation_aura"}, a.Available(st))
}

func TestAdapter_ApplyAbility_CostGainAndCharges(t *testing.T) {
	a := newTestAdapter(t, sim.BuildConfig{})
	st := a.CreateInitialState(sim.BuildConfig{}, 300000)
	st.Resources["fury"].Current = 50

	a.ApplyAbility(st, "chaos_strike")
	assert.Equal(t, 10.0, st.Resources["fury"].Current)

	a.ApplyAbility(st, "demons_bite")
	assert.Equal(t, 35.0, st.Resources["fury"].Current)

	a.ApplyAbility(st, "immolation_aura")
	cd := st.Cooldowns["immolation_aura"]
	assert.Equal(t, 1, cd.Charges)
	assert.Equal(t, int64(15000), cd.RemainingMs) // recharge starts on first use
	assert.Equal(t, int64(6000), st.Dots["immolation"].RemainsMs)

	a.ApplyAbility(st, "immolation_aura")
	assert.Equal(t, 0, cd.Charges)
	assert.Equal(t, int64(15000), cd.RemainingMs) // already recharging

	assert.Panics(t, func() { a.ApplyAbility(st, "immolation_aura") })
}

func TestAdapter_ApplyAbility_PanicsWhenUnaffordable(t *testing.T) {
	a := newTestAdapter(t, sim.BuildConfig{})
	st := a.CreateInitialState(sim.BuildConfig{}, 300000)
	st.Resources["fury"].Current = 0

	assert.Panics(t, func() { a.ApplyAbility(st, "chaos_strike") })
	assert.Panics(t, func() { a.ApplyAbility(st, "not_an_ability") })
}

func TestAdapter_ApplyAbility_BuffStacksCapped(t *testing.T) {
	a := newTestAdapter(t, sim.BuildConfig{})
	st := a.CreateInitialState(sim.BuildConfig{}, 300000)
	st.Resources["fury"].Current = 120
	st.Cooldowns["eye_beam"].Charges = 1

	a.ApplyAbility(st, "eye_beam")
	buff := st.Buffs["furious_gaze"]
	require.NotNil(t, buff)
	assert.Equal(t, 1, buff.Stacks)
	assert.Equal(t, int64(10000), buff.RemainsMs)

	// recast refreshes duration but max_stacks: 1 keeps stacks at one
	st.Cooldowns["eye_beam"].Charges = 1
	st.AdvanceTimers(3000)
	a.ApplyAbility(st, "eye_beam")
	assert.Equal(t, 1, buff.Stacks)
	assert.Equal(t, int64(10000), buff.RemainsMs)
}

func TestAdapter_TalentGate(t *testing.T) {
	c := validCatalog()
	c.Abilities[2].RequiresTalent = "blind_fury"

	locked, err := NewAdapter(c, sim.BuildConfig{})
	require.NoError(t, err)
	st := locked.CreateInitialState(sim.BuildConfig{}, 300000)
	st.Resources["fury"].Current = 100
	assert.NotContains(t, locked.Available(st), "eye_beam")

	unlocked, err := NewAdapter(c, sim.BuildConfig{Talents: map[string]bool{"blind_fury": true}})
	require.NoError(t, err)
	st = unlocked.CreateInitialState(sim.BuildConfig{}, 300000)
	st.Resources["fury"].Current = 100
	assert.Contains(t, unlocked.Available(st), "eye_beam")
}

func TestAdapter_TalentModifiers(t *testing.T) {
	c := validCatalog()
	c.Abilities[1].Modifiers = []TalentModifier{
		{Talent: "critical_chaos", ScoreMult: 1.5, CostAdd: map[string]float64{"fury": -10}},
	}
	c.Abilities[2].Modifiers = []TalentModifier{
		{Talent: "cycle_of_hatred", CooldownAddMs: -10000},
	}

	build := sim.BuildConfig{Talents: map[string]bool{"critical_chaos": true, "cycle_of_hatred": true}}
	a, err := NewAdapter(c, build)
	require.NoError(t, err)
	st := a.CreateInitialState(sim.BuildConfig{}, 300000)

	// 90 base score * 1.5 talent multiplier
	assert.Equal(t, 135.0, a.ScoreImmediate(st, "chaos_strike"))

	// cost reduced from 40 to 30: castable at exactly 30 fury
	st.Resources["fury"].Current = 30
	assert.Contains(t, a.Available(st), "chaos_strike")
	a.ApplyAbility(st, "chaos_strike")
	assert.Equal(t, 0.0, st.Resources["fury"].Current)

	// cooldown shortened from 30s to 20s
	assert.Equal(t, int64(20000), st.Cooldowns["eye_beam"].RechargeMs)
}

func TestAdapter_ScoreImmediate_BuffMultiplier(t *testing.T) {
	a := newTestAdapter(t, sim.BuildConfig{})
	st := a.CreateInitialState(sim.BuildConfig{}, 300000)

	assert.Equal(t, 25.0, a.ScoreImmediate(st, "demons_bite"))

	st.Buffs["metamorphosis"] = &sim.Aura{RemainsMs: 5000, Stacks: 1}
	assert.Equal(t, 30.0, a.ScoreImmediate(st, "demons_bite")) // 25 * 1.2

	assert.Equal(t, 0.0, a.ScoreImmediate(st, "not_an_ability"))
}

func TestAdapter_GCD(t *testing.T) {
	c := validCatalog()
	c.Abilities = append(c.Abilities, AbilityDef{ID: "throw_glaive", Score: 5, OffGCD: true})
	a, err := NewAdapter(c, sim.BuildConfig{})
	require.NoError(t, err)
	st := a.CreateInitialState(sim.BuildConfig{}, 300000)

	assert.Equal(t, int64(1500), a.GCD(st, "demons_bite"))
	assert.Equal(t, int64(0), a.GCD(st, "throw_glaive"))

	st.Buffs["furious_gaze"] = &sim.Aura{RemainsMs: 5000, Stacks: 1}
	assert.Equal(t, int64(1200), a.GCD(st, "demons_bite")) // 1500 * 0.8
}

func TestAdapter_Classifiers(t *testing.T) {
	a := newTestAdapter(t, sim.BuildConfig{})

	assert.True(t, a.IsGenerator("demons_bite"))
	assert.False(t, a.IsGenerator("chaos_strike"))
	assert.True(t, a.IsSpender("chaos_strike"))
	assert.False(t, a.IsSpender("demons_bite"))
	assert.True(t, a.HasCooldown("eye_beam"))
	assert.False(t, a.HasCooldown("demons_bite"))

	assert.Equal(t, []string{"demons_bite"}, a.FillerAbilities())
}
