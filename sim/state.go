package sim

import "fmt"

// Resource is one named numeric pool with a cap and deterministic
// regeneration.
type Resource struct {
	Current     float64
	Cap         float64
	RegenPerSec float64
}

// Aura is one buff or dot timer. A zero-stack active aura is treated as one
// stack.
type Aura struct {
	RemainsMs int64
	Stacks    int
}

// Cooldown tracks charge count and recharge progress for one ability.
// RemainingMs is the time until the next charge is restored; it is zero
// whenever Charges == MaxCharges.
type Cooldown struct {
	RemainingMs int64
	Charges     int
	MaxCharges  int
	RechargeMs  int64
}

// State is the complete record of a simulated actor at one instant.
// Transitions mutate it in place; Clone produces an independent copy for
// branch points (forced-first-move comparisons, short-horizon checks).
type State struct {
	ClockMs    int64
	FightEndMs int64
	GCDBaseMs  int64

	Resources map[string]*Resource
	Buffs     map[string]*Aura
	Dots      map[string]*Aura
	Cooldowns map[string]*Cooldown

	// Extra holds adapter-specific scalars not covered by the generic
	// schema. Restored through the ExtraRestorer hook on reconstruction.
	Extra map[string]float64
}

// NewState creates an empty State with allocated maps.
func NewState(fightEndMs, gcdBaseMs int64) *State {
	return &State{
		FightEndMs: fightEndMs,
		GCDBaseMs:  gcdBaseMs,
		Resources:  make(map[string]*Resource),
		Buffs:      make(map[string]*Aura),
		Dots:       make(map[string]*Aura),
		Cooldowns:  make(map[string]*Cooldown),
		Extra:      make(map[string]float64),
	}
}

// Clone returns a deep copy sharing nothing with the receiver.
func (s *State) Clone() *State {
	c := &State{
		ClockMs:    s.ClockMs,
		FightEndMs: s.FightEndMs,
		GCDBaseMs:  s.GCDBaseMs,
		Resources:  make(map[string]*Resource, len(s.Resources)),
		Buffs:      make(map[string]*Aura, len(s.Buffs)),
		Dots:       make(map[string]*Aura, len(s.Dots)),
		Cooldowns:  make(map[string]*Cooldown, len(s.Cooldowns)),
		Extra:      make(map[string]float64, len(s.Extra)),
	}
	for name, r := range s.Resources {
		rc := *r
		c.Resources[name] = &rc
	}
	for name, a := range s.Buffs {
		ac := *a
		c.Buffs[name] = &ac
	}
	for name, a := range s.Dots {
		ac := *a
		c.Dots[name] = &ac
	}
	for name, cd := range s.Cooldowns {
		cdc := *cd
		c.Cooldowns[name] = &cdc
	}
	for k, v := range s.Extra {
		c.Extra[k] = v
	}
	return c
}

// RemainingMs returns the time left until the fight end.
func (s *State) RemainingMs() int64 {
	if s.FightEndMs <= s.ClockMs {
		return 0
	}
	return s.FightEndMs - s.ClockMs
}

// GainResource adds amount to the named pool, clamped to [0, cap].
func (s *State) GainResource(name string, amount float64) {
	r, ok := s.Resources[name]
	if !ok {
		panic(fmt.Sprintf("sim: unknown resource %q", name))
	}
	r.Current += amount
	if r.Current > r.Cap {
		r.Current = r.Cap
	}
	if r.Current < 0 {
		r.Current = 0
	}
}

// SpendResource deducts amount from the named pool. The caller must have
// verified affordability; spending below zero is a contract violation.
func (s *State) SpendResource(name string, amount float64) {
	r, ok := s.Resources[name]
	if !ok {
		panic(fmt.Sprintf("sim: unknown resource %q", name))
	}
	if r.Current < amount {
		panic(fmt.Sprintf("sim: spending %f %s with only %f available", amount, name, r.Current))
	}
	r.Current -= amount
}

// BuffActive reports whether the named buff is up.
func (s *State) BuffActive(name string) bool {
	a, ok := s.Buffs[name]
	return ok && a.RemainsMs > 0
}

// AdvanceTimers moves the clock forward by dt, expiring aura timers that
// reach zero, regenerating resources, and restoring cooldown charges.
// Expired auras are removed; cooldown entries persist so charge bookkeeping
// survives.
func (s *State) AdvanceTimers(dt int64) {
	if dt < 0 {
		panic(fmt.Sprintf("sim: negative time advance %d", dt))
	}
	s.ClockMs += dt

	for name, a := range s.Buffs {
		a.RemainsMs -= dt
		if a.RemainsMs <= 0 {
			delete(s.Buffs, name)
		}
	}
	for name, a := range s.Dots {
		a.RemainsMs -= dt
		if a.RemainsMs <= 0 {
			delete(s.Dots, name)
		}
	}

	for _, r := range s.Resources {
		if r.RegenPerSec != 0 {
			r.Current += r.RegenPerSec * float64(dt) / 1000.0
			if r.Current > r.Cap {
				r.Current = r.Cap
			}
			if r.Current < 0 {
				r.Current = 0
			}
		}
	}

	for _, cd := range s.Cooldowns {
		remaining := dt
		for cd.Charges < cd.MaxCharges && cd.RemainingMs <= remaining {
			remaining -= cd.RemainingMs
			cd.Charges++
			if cd.Charges < cd.MaxCharges {
				cd.RemainingMs = cd.RechargeMs
			} else {
				cd.RemainingMs = 0
			}
		}
		if cd.Charges < cd.MaxCharges {
			cd.RemainingMs -= remaining
		}
	}
}

// Validate checks the state invariants: resource values in [0, cap], timers
// non-negative. Returns the first violation found.
func (s *State) Validate() error {
	for name, r := range s.Resources {
		if r.Current < 0 || r.Current > r.Cap {
			return fmt.Errorf("resource %s out of bounds: %f not in [0, %f]", name, r.Current, r.Cap)
		}
	}
	for name, a := range s.Buffs {
		if a.RemainsMs < 0 {
			return fmt.Errorf("buff %s has negative timer %d", name, a.RemainsMs)
		}
	}
	for name, a := range s.Dots {
		if a.RemainsMs < 0 {
			return fmt.Errorf("dot %s has negative timer %d", name, a.RemainsMs)
		}
	}
	for name, cd := range s.Cooldowns {
		if cd.RemainingMs < 0 {
			return fmt.Errorf("cooldown %s has negative timer %d", name, cd.RemainingMs)
		}
		if cd.Charges < 0 || cd.Charges > cd.MaxCharges {
			return fmt.Errorf("cooldown %s charge count %d not in [0, %d]", name, cd.Charges, cd.MaxCharges)
		}
	}
	return nil
}
