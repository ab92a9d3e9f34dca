package sim

import "github.com/sirupsen/logrus"

// RolloutConfig tunes the bounded-horizon search. The defaults are
// empirically chosen to suppress false positives; they carry no domain
// meaning.
type RolloutConfig struct {
	// HorizonMs bounds how far the greedy continuation simulates ahead.
	HorizonMs int64
	// WaitTickMs is the minimal time advance when nothing is castable.
	WaitTickMs int64
	// MaxIterations caps the number of simulated actions per rollout as a
	// safeguard against pathological adapters. This is a hard bound, not a
	// cancellation mechanism.
	MaxIterations int
	// MaxOffGCDChain bounds consecutive zero-GCD applications at a single
	// instant before time is forced forward.
	MaxOffGCDChain int
}

// DefaultRolloutConfig returns the tuned defaults.
func DefaultRolloutConfig() RolloutConfig {
	return RolloutConfig{
		HorizonMs:      8000,
		WaitTickMs:     100,
		MaxIterations:  10000,
		MaxOffGCDChain: 8,
	}
}

// Rollout approximates the best next action from a state via greedy
// lookahead: repeatedly take the available action with the highest immediate
// score, advance by its GCD, and repeat until the horizon is exhausted.
//
// This is a single-branch greedy-continuation heuristic, not exhaustive
// search. Known bias: it overvalues resource-hoarding moves whose payoff
// lands later in the horizon, because the greedy continuation does not
// discount value that depends on coordinated multi-step setups. The
// divergence analyzer compensates with a short-horizon confidence check.
type Rollout struct {
	adapter Adapter
	cfg     RolloutConfig
}

// NewRollout creates a Rollout over the given adapter.
func NewRollout(a Adapter, cfg RolloutConfig) *Rollout {
	if cfg.HorizonMs <= 0 {
		cfg.HorizonMs = DefaultRolloutConfig().HorizonMs
	}
	if cfg.WaitTickMs <= 0 {
		cfg.WaitTickMs = DefaultRolloutConfig().WaitTickMs
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultRolloutConfig().MaxIterations
	}
	if cfg.MaxOffGCDChain <= 0 {
		cfg.MaxOffGCDChain = DefaultRolloutConfig().MaxOffGCDChain
	}
	return &Rollout{adapter: a, cfg: cfg}
}

// BestAction returns the first action along the greedy path from st, or ""
// when nothing becomes castable within the horizon. st is not mutated.
func (r *Rollout) BestAction(st *State) string {
	first, _ := r.greedy(st.Clone(), "", r.cfg.HorizonMs)
	return first
}

// Score forces firstID as the first move, continues greedily, and returns
// the cumulative immediate score over the horizon. Used to compare two
// candidate first moves even when neither is the argmax root choice.
// st is not mutated.
func (r *Rollout) Score(st *State, firstID string) float64 {
	_, total := r.greedy(st.Clone(), firstID, r.cfg.HorizonMs)
	return total
}

// ScoreHorizon is Score with an explicit horizon, used by the divergence
// analyzer's short-horizon branch check.
func (r *Rollout) ScoreHorizon(st *State, firstID string, horizonMs int64) float64 {
	_, total := r.greedy(st.Clone(), firstID, horizonMs)
	return total
}

// greedy simulates forward on st (owned by the caller) until the horizon or
// fight end. When forced is non-empty it is taken as the first move, waiting
// for it to become castable if necessary.
func (r *Rollout) greedy(st *State, forced string, horizonMs int64) (string, float64) {
	deadline := st.ClockMs + horizonMs
	if st.FightEndMs < deadline {
		deadline = st.FightEndMs
	}

	var first string
	var total float64
	offGCDChain := 0

	for iter := 0; st.ClockMs < deadline; iter++ {
		if iter >= r.cfg.MaxIterations {
			logrus.Warnf("rollout hit iteration cap (%d) at clock %d", r.cfg.MaxIterations, st.ClockMs)
			break
		}

		choice := r.pick(st, forced, first == "")
		if choice == "" {
			r.adapter.AdvanceTime(st, r.cfg.WaitTickMs)
			continue
		}

		total += r.adapter.ScoreImmediate(st, choice)
		gcd := r.adapter.GCD(st, choice)
		r.adapter.ApplyAbility(st, choice)
		if first == "" {
			first = choice
		}

		if gcd > 0 {
			r.adapter.AdvanceTime(st, gcd)
			offGCDChain = 0
		} else {
			offGCDChain++
			if offGCDChain >= r.cfg.MaxOffGCDChain {
				r.adapter.AdvanceTime(st, r.cfg.WaitTickMs)
				offGCDChain = 0
			}
		}
	}
	return first, total
}

// pick selects the next action: the forced first move when pending and
// castable, otherwise the available action with the highest immediate score
// (earliest-declared wins ties, keeping the search deterministic).
func (r *Rollout) pick(st *State, forced string, firstPending bool) string {
	available := r.adapter.Available(st)
	if len(available) == 0 {
		return ""
	}

	if forced != "" && firstPending {
		for _, id := range available {
			if id == forced {
				return id
			}
		}
		// Forced move not yet castable; wait rather than substitute.
		return ""
	}

	best := available[0]
	bestScore := r.adapter.ScoreImmediate(st, best)
	for _, id := range available[1:] {
		if score := r.adapter.ScoreImmediate(st, id); score > bestScore {
			best, bestScore = id, score
		}
	}
	return best
}
