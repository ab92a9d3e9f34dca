package sim

import (
	"github.com/taherbert/dh-apl-sub006/sim/trace"
)

// Capture produces the compact snapshot of st recorded in trace events:
// only the mutable fields needed to rebuild a full State given the build
// configuration's fixed defaults.
func Capture(st *State) trace.Snapshot {
	snap := trace.Snapshot{
		ClockMs:   st.ClockMs,
		Resources: make(map[string]float64, len(st.Resources)),
	}
	for name, r := range st.Resources {
		snap.Resources[name] = r.Current
	}
	if len(st.Buffs) > 0 {
		snap.Buffs = make(map[string]trace.AuraState, len(st.Buffs))
		for name, a := range st.Buffs {
			snap.Buffs[name] = trace.AuraState{RemainsMs: a.RemainsMs, Stacks: a.Stacks}
		}
	}
	if len(st.Dots) > 0 {
		snap.Dots = make(map[string]trace.AuraState, len(st.Dots))
		for name, a := range st.Dots {
			snap.Dots[name] = trace.AuraState{RemainsMs: a.RemainsMs, Stacks: a.Stacks}
		}
	}
	if len(st.Cooldowns) > 0 {
		snap.Cooldowns = make(map[string]trace.CooldownState, len(st.Cooldowns))
		for name, cd := range st.Cooldowns {
			snap.Cooldowns[name] = trace.CooldownState{RemainingMs: cd.RemainingMs, Charges: cd.Charges}
		}
	}
	if len(st.Extra) > 0 {
		snap.Extra = make(map[string]float64, len(st.Extra))
		for k, v := range st.Extra {
			snap.Extra[k] = v
		}
	}
	return snap
}

// Reconstruct rebuilds a full State from a compact snapshot plus the build
// configuration's fixed defaults, so the search can be asked "what would you
// have picked here" without replaying the whole trace from t=0.
// Cooldown recharge lengths, resource caps, and regen rates come from the
// adapter's initial state; only snapshot-covered fields are overwritten.
func Reconstruct(a Adapter, cfg BuildConfig, snap trace.Snapshot, fightEndMs int64) *State {
	st := a.CreateInitialState(cfg, fightEndMs)
	st.ClockMs = snap.ClockMs

	for name, current := range snap.Resources {
		if r, ok := st.Resources[name]; ok {
			r.Current = current
		}
	}

	// Auras absent from the snapshot were not active.
	st.Buffs = make(map[string]*Aura, len(snap.Buffs))
	for name, a := range snap.Buffs {
		st.Buffs[name] = &Aura{RemainsMs: a.RemainsMs, Stacks: a.Stacks}
	}
	st.Dots = make(map[string]*Aura, len(snap.Dots))
	for name, a := range snap.Dots {
		st.Dots[name] = &Aura{RemainsMs: a.RemainsMs, Stacks: a.Stacks}
	}

	for name, cds := range snap.Cooldowns {
		if cd, ok := st.Cooldowns[name]; ok {
			cd.RemainingMs = cds.RemainingMs
			cd.Charges = cds.Charges
		}
	}

	if restorer, ok := a.(ExtraRestorer); ok && len(snap.Extra) > 0 {
		restorer.RestoreExtra(st, snap.Extra)
	}
	return st
}
