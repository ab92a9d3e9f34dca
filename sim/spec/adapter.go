package spec

import (
	"fmt"
	"math"

	"github.com/taherbert/dh-apl-sub006/sim"
)

// Adapter implements sim.Adapter for a Catalog bound to one BuildConfig.
// Binding happens once at the composition root: an analysis run pairs
// exactly one catalog with one build, and talent gates and modifiers are
// resolved against that build on every call.
type Adapter struct {
	catalog *Catalog
	build   sim.BuildConfig

	abilities map[string]*AbilityDef
	fillers   []string
}

// NewAdapter creates an Adapter over a validated catalog.
func NewAdapter(c *Catalog, build sim.BuildConfig) (*Adapter, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	a := &Adapter{
		catalog:   c,
		build:     build,
		abilities: make(map[string]*AbilityDef, len(c.Abilities)),
	}
	for i := range c.Abilities {
		def := &c.Abilities[i]
		a.abilities[def.ID] = def
		if def.Filler {
			a.fillers = append(a.fillers, def.ID)
		}
	}
	return a, nil
}

// CreateInitialState builds the starting state: resource pools at their
// initial values (overridable via build params named "initial.<resource>"),
// all cooldown charges full, no auras.
func (a *Adapter) CreateInitialState(cfg sim.BuildConfig, fightEndMs int64) *sim.State {
	gcd := a.catalog.GCDMs
	if gcd <= 0 {
		gcd = DefaultGCDMs
	}
	st := sim.NewState(fightEndMs, gcd)

	for _, r := range a.catalog.Resources {
		initial := cfg.Param("initial."+r.Name, r.Initial)
		st.Resources[r.Name] = &sim.Resource{
			Current:     math.Min(initial, r.Cap),
			Cap:         r.Cap,
			RegenPerSec: r.RegenPerSec,
		}
	}

	for _, def := range a.catalog.Abilities {
		cd := a.effectiveCooldown(&def)
		if cd <= 0 {
			continue
		}
		charges := def.Charges
		if charges == 0 {
			charges = 1
		}
		st.Cooldowns[def.ID] = &sim.Cooldown{
			Charges:    charges,
			MaxCharges: charges,
			RechargeMs: cd,
		}
	}
	return st
}

// ApplyAbility pays the ability's cost, applies its gains and auras, and
// consumes a cooldown charge. Panics when id is not castable: that is an
// interpreter or search defect, never a recoverable condition.
func (a *Adapter) ApplyAbility(st *sim.State, id string) {
	def, ok := a.abilities[id]
	if !ok || !a.castable(st, def) {
		panic(fmt.Sprintf("spec: ApplyAbility(%q) while unavailable at clock %d", id, st.ClockMs))
	}

	for name, amount := range a.effectiveCost(def) {
		st.SpendResource(name, amount)
	}
	for name, amount := range def.Gain {
		st.GainResource(name, amount)
	}

	if cd, ok := st.Cooldowns[id]; ok {
		if cd.Charges == cd.MaxCharges {
			cd.RemainingMs = cd.RechargeMs
		}
		cd.Charges--
	}

	if def.AppliesBuff != "" {
		stacks := def.BuffStacks
		if stacks == 0 {
			stacks = 1
		}
		buffDef, _ := a.catalog.buff(def.AppliesBuff)
		cur := st.Buffs[def.AppliesBuff]
		if cur == nil {
			cur = &sim.Aura{}
			st.Buffs[def.AppliesBuff] = cur
		}
		cur.RemainsMs = def.BuffDurationMs
		cur.Stacks += stacks
		if buffDef.MaxStacks > 0 && cur.Stacks > buffDef.MaxStacks {
			cur.Stacks = buffDef.MaxStacks
		}
	}

	if def.AppliesDot != "" {
		st.Dots[def.AppliesDot] = &sim.Aura{RemainsMs: def.DotDurationMs, Stacks: 1}
	}
}

// AdvanceTime delegates to the generic timer/regen/recharge bookkeeping.
func (a *Adapter) AdvanceTime(st *sim.State, dt int64) {
	st.AdvanceTimers(dt)
}

// Available returns castable ability ids in catalog declaration order.
func (a *Adapter) Available(st *sim.State) []string {
	out := make([]string, 0, len(a.catalog.Abilities))
	for i := range a.catalog.Abilities {
		def := &a.catalog.Abilities[i]
		if a.castable(st, def) {
			out = append(out, def.ID)
		}
	}
	return out
}

// ScoreImmediate returns the ability's immediate value proxy: its catalog
// score adjusted by talent modifiers and active buff multipliers.
func (a *Adapter) ScoreImmediate(st *sim.State, id string) float64 {
	def, ok := a.abilities[id]
	if !ok {
		return 0
	}
	score := def.Score
	for _, mod := range def.Modifiers {
		if mod.ScoreMult > 0 && a.build.Talent(mod.Talent) {
			score *= mod.ScoreMult
		}
	}
	for _, b := range a.catalog.Buffs {
		if b.ScoreMult > 0 && st.BuffActive(b.Name) {
			score *= b.ScoreMult
		}
	}
	return score
}

// GCD returns the global cooldown consumed by the ability, shortened or
// lengthened by active buff multipliers. Off-GCD abilities return 0.
func (a *Adapter) GCD(st *sim.State, id string) int64 {
	def, ok := a.abilities[id]
	if !ok || def.OffGCD {
		return 0
	}
	gcd := float64(def.GCDMs)
	if def.GCDMs == 0 {
		gcd = float64(st.GCDBaseMs)
	}
	for _, b := range a.catalog.Buffs {
		if b.GCDMult > 0 && st.BuffActive(b.Name) {
			gcd *= b.GCDMult
		}
	}
	return int64(math.Round(gcd))
}

// FillerAbilities returns the ids flagged filler in the catalog.
func (a *Adapter) FillerAbilities() []string {
	return a.fillers
}

// IsGenerator implements sim.AbilityClassifier.
func (a *Adapter) IsGenerator(id string) bool {
	def, ok := a.abilities[id]
	return ok && len(def.Gain) > 0 && len(def.Cost) == 0
}

// IsSpender implements sim.AbilityClassifier.
func (a *Adapter) IsSpender(id string) bool {
	def, ok := a.abilities[id]
	return ok && len(def.Cost) > 0
}

// HasCooldown implements sim.AbilityClassifier.
func (a *Adapter) HasCooldown(id string) bool {
	def, ok := a.abilities[id]
	return ok && a.effectiveCooldown(def) > 0
}

// castable checks the ability's legality predicate: talent gate, an
// available cooldown charge, and affordable costs.
func (a *Adapter) castable(st *sim.State, def *AbilityDef) bool {
	if def.RequiresTalent != "" && !a.build.Talent(def.RequiresTalent) {
		return false
	}
	if cd, ok := st.Cooldowns[def.ID]; ok && cd.Charges <= 0 {
		return false
	}
	for name, amount := range a.effectiveCost(def) {
		r, ok := st.Resources[name]
		if !ok || r.Current < amount {
			return false
		}
	}
	return true
}

// effectiveCost is the base cost adjusted by selected talent modifiers,
// floored at zero.
func (a *Adapter) effectiveCost(def *AbilityDef) map[string]float64 {
	if len(def.Modifiers) == 0 {
		return def.Cost
	}
	cost := make(map[string]float64, len(def.Cost))
	for name, amount := range def.Cost {
		cost[name] = amount
	}
	for _, mod := range def.Modifiers {
		if !a.build.Talent(mod.Talent) {
			continue
		}
		for name, add := range mod.CostAdd {
			cost[name] = math.Max(0, cost[name]+add)
		}
	}
	return cost
}

// effectiveCooldown is the base cooldown adjusted by selected talent
// modifiers, floored at zero.
func (a *Adapter) effectiveCooldown(def *AbilityDef) int64 {
	cd := def.CooldownMs
	for _, mod := range def.Modifiers {
		if mod.CooldownAddMs != 0 && a.build.Talent(mod.Talent) {
			cd += mod.CooldownAddMs
		}
	}
	if cd < 0 {
		cd = 0
	}
	return cd
}
