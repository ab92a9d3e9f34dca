package apl

import (
	"fmt"
	"strings"

	"github.com/taherbert/dh-apl-sub006/sim"
)

// Resolver maps dotted field paths to values in the current State. The
// lookup table is built once per run from the state schema and the build
// configuration; evaluation then dispatches on the first path segment with
// no reflection.
//
// Supported paths:
//
//	<resource>[.deficit|.max|.pct]
//	buff.<name>.up|down|remains|stack|stacks
//	dot.<name>.ticking|up|remains   (debuff. is an alias)
//	cooldown.<name>.ready|remains|charges|duration
//	talent.<name>[.enabled]
//	variable.<name>
//	time, fight_remains, gcd.max, gcd.remains
type Resolver struct {
	state     *sim.State
	resources map[string]bool
	talents   map[string]bool
}

// NewResolver builds the lookup table for a run. The schema (resource names)
// comes from the adapter's initial state; talent flags come from the build
// configuration.
func NewResolver(initial *sim.State, cfg sim.BuildConfig) *Resolver {
	r := &Resolver{
		resources: make(map[string]bool, len(initial.Resources)),
		talents:   make(map[string]bool, len(cfg.Talents)),
	}
	for name := range initial.Resources {
		r.resources[name] = true
	}
	for name, enabled := range cfg.Talents {
		r.talents[name] = enabled
	}
	return r
}

// Bind points the resolver at the state to evaluate against. The runner
// rebinds as its working state advances; the analyzer binds reconstructed
// states.
func (r *Resolver) Bind(st *sim.State) { r.state = st }

// Resolve evaluates one dotted field path. Unknown paths are errors naming
// the path; silent zero values would mask typos in rule text.
func (r *Resolver) Resolve(path string, vars map[string]float64) (float64, error) {
	st := r.state
	if st == nil {
		return 0, fmt.Errorf("resolver not bound to a state")
	}
	segs := strings.Split(path, ".")
	head, rest := segs[0], segs[1:]

	if r.resources[head] {
		return r.resolveResource(head, rest)
	}

	switch head {
	case "buff":
		return r.resolveAura(st.Buffs, "buff", rest)
	case "dot", "debuff":
		return r.resolveAura(st.Dots, head, rest)
	case "cooldown":
		return r.resolveCooldown(rest)
	case "talent":
		if len(rest) == 1 || len(rest) == 2 && rest[1] == "enabled" {
			return boolVal(r.talents[rest[0]]), nil
		}
	case "variable":
		if len(rest) == 1 {
			v, ok := vars[rest[0]]
			if !ok {
				return 0, fmt.Errorf("variable %q read before assignment", rest[0])
			}
			return v, nil
		}
	case "time":
		if len(rest) == 0 {
			return float64(st.ClockMs) / 1000.0, nil
		}
	case "fight_remains":
		if len(rest) == 0 {
			return float64(st.RemainingMs()) / 1000.0, nil
		}
	case "gcd":
		if len(rest) == 1 && rest[0] == "max" {
			return float64(st.GCDBaseMs) / 1000.0, nil
		}
		// Rules are evaluated on GCD boundaries, so the running GCD has
		// always elapsed by evaluation time.
		if len(rest) == 1 && rest[0] == "remains" {
			return 0, nil
		}
	}
	return 0, fmt.Errorf("unknown field path %q", path)
}

func (r *Resolver) resolveResource(name string, rest []string) (float64, error) {
	res := r.state.Resources[name]
	if len(rest) == 0 {
		return res.Current, nil
	}
	if len(rest) == 1 {
		switch rest[0] {
		case "deficit":
			return res.Cap - res.Current, nil
		case "max":
			return res.Cap, nil
		case "pct":
			return res.Current / res.Cap * 100.0, nil
		}
	}
	return 0, fmt.Errorf("unknown resource field %q", name+"."+strings.Join(rest, "."))
}

func (r *Resolver) resolveAura(auras map[string]*sim.Aura, kind string, rest []string) (float64, error) {
	if len(rest) != 2 {
		return 0, fmt.Errorf("malformed %s path %q", kind, kind+"."+strings.Join(rest, "."))
	}
	name, field := rest[0], rest[1]
	a := auras[name] // absent aura = inactive, not an error

	switch field {
	case "up", "ticking":
		return boolVal(a != nil && a.RemainsMs > 0), nil
	case "down":
		return boolVal(a == nil || a.RemainsMs <= 0), nil
	case "remains":
		if a == nil {
			return 0, nil
		}
		return float64(a.RemainsMs) / 1000.0, nil
	case "stack", "stacks":
		if a == nil {
			return 0, nil
		}
		return float64(a.Stacks), nil
	}
	return 0, fmt.Errorf("unknown %s field %q", kind, field)
}

func (r *Resolver) resolveCooldown(rest []string) (float64, error) {
	if len(rest) != 2 {
		return 0, fmt.Errorf("malformed cooldown path %q", "cooldown."+strings.Join(rest, "."))
	}
	name, field := rest[0], rest[1]
	cd := r.state.Cooldowns[name]
	if cd == nil {
		// Abilities without a cooldown entry are always ready.
		switch field {
		case "ready":
			return 1, nil
		case "remains":
			return 0, nil
		case "charges":
			return 1, nil
		case "duration":
			return 0, nil
		}
		return 0, fmt.Errorf("unknown cooldown field %q", field)
	}

	switch field {
	case "ready":
		return boolVal(cd.Charges > 0), nil
	case "remains":
		if cd.Charges > 0 {
			return 0, nil
		}
		return float64(cd.RemainingMs) / 1000.0, nil
	case "charges":
		return float64(cd.Charges), nil
	case "duration":
		return float64(cd.RechargeMs) / 1000.0, nil
	}
	return 0, fmt.Errorf("unknown cooldown field %q", field)
}
