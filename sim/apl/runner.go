package apl

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/taherbert/dh-apl-sub006/sim"
	"github.com/taherbert/dh-apl-sub006/sim/trace"
)

// RunnerConfig tunes the interpreter's clock handling.
type RunnerConfig struct {
	// WaitTickMs is the minimal advance when no rule matches, guaranteeing
	// forward progress.
	WaitTickMs int64
	// MaxOffGCDChain bounds off-GCD applications within a single instant
	// before time is forced forward (livelock safeguard).
	MaxOffGCDChain int
}

// DefaultRunnerConfig returns the tuned defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{WaitTickMs: 100, MaxOffGCDChain: 8}
}

// Runner executes a parsed RuleSet against the state model, producing a
// decision trace. It drives a small state machine per instant:
// Evaluating → Applying → Advancing on a match, Evaluating → Waiting when
// no rule matches.
type Runner struct {
	adapter sim.Adapter
	cfg     RunnerConfig
}

// NewRunner creates a Runner over the given adapter.
func NewRunner(adapter sim.Adapter, cfg RunnerConfig) *Runner {
	if cfg.WaitTickMs <= 0 {
		cfg.WaitTickMs = DefaultRunnerConfig().WaitTickMs
	}
	if cfg.MaxOffGCDChain <= 0 {
		cfg.MaxOffGCDChain = DefaultRunnerConfig().MaxOffGCDChain
	}
	return &Runner{adapter: adapter, cfg: cfg}
}

// Run drives the rule set from t=0 until the clock reaches durationMs,
// recording one trace event per applied action. Off-GCD actions apply
// without consuming the GCD clock, so several may land within one tick.
// Expression evaluation errors are fatal to the run.
func (r *Runner) Run(rs *RuleSet, build sim.BuildConfig, durationMs int64) (*trace.Trace, error) {
	configHash, err := sim.HashConfig(build)
	if err != nil {
		return nil, err
	}
	key := trace.CacheKey(configHash, rs.Source, durationMs, trace.FormatVersion)
	tr := trace.New(key, configHash, durationMs)

	st := r.adapter.CreateInitialState(build, durationMs)
	resolver := NewResolver(st, build)
	env := &Env{Resolver: resolver, Vars: make(map[string]float64)}

	gcdIndex := 0
	offGCDChain := 0

	for st.ClockMs < durationMs {
		resolver.Bind(st)

		castable := make(map[string]bool)
		for _, id := range r.adapter.Available(st) {
			castable[id] = true
		}

		chosen, err := r.selectAction(rs, MainList, env, castable, map[string]bool{})
		if err != nil {
			return nil, fmt.Errorf("at %dms: %w", st.ClockMs, err)
		}
		if chosen == nil {
			// Waiting: nothing matched, take a minimal tick.
			r.adapter.AdvanceTime(st, r.cfg.WaitTickMs)
			offGCDChain = 0
			continue
		}

		snapshot := sim.Capture(st)
		score := r.adapter.ScoreImmediate(st, chosen.Ability)
		gcd := r.adapter.GCD(st, chosen.Ability)
		r.adapter.ApplyAbility(st, chosen.Ability)

		tr.Record(trace.Event{
			GCDIndex:  gcdIndex,
			TimeMs:    snapshot.ClockMs,
			Ability:   chosen.Ability,
			Condition: chosen.ConditionText,
			OffGCD:    gcd == 0,
			Snapshot:  snapshot,
		}, score)

		if gcd > 0 {
			r.adapter.AdvanceTime(st, gcd)
			gcdIndex++
			offGCDChain = 0
		} else {
			offGCDChain++
			if offGCDChain >= r.cfg.MaxOffGCDChain {
				logrus.Debugf("off-GCD chain cap reached at %dms; forcing tick", st.ClockMs)
				r.adapter.AdvanceTime(st, r.cfg.WaitTickMs)
				offGCDChain = 0
			}
		}
	}

	return tr, nil
}

// selectAction walks one action list in priority order and returns the
// first cast entry whose ability is castable and whose condition holds, or
// nil when the list selects nothing this instant.
func (r *Runner) selectAction(rs *RuleSet, listName string, env *Env, castable map[string]bool, inChain map[string]bool) (*Action, error) {
	if inChain[listName] {
		return nil, fmt.Errorf("action list cycle through %q", listName)
	}
	inChain[listName] = true
	defer delete(inChain, listName)

	list := rs.Lists[listName]
	for i := range list {
		action := &list[i]
		ok, err := EvalBool(action.Condition, env)
		if err != nil {
			return nil, fmt.Errorf("list %q entry %d (line %d): %w", listName, i+1, action.Line, err)
		}
		if !ok {
			continue
		}

		switch action.Kind {
		case ActionVariable:
			v, err := action.Value.Eval(env)
			if err != nil {
				return nil, fmt.Errorf("list %q entry %d (line %d): %w", listName, i+1, action.Line, err)
			}
			env.Vars[action.VarName] = v
		case ActionCallList:
			chosen, err := r.selectAction(rs, action.ListName, env, castable, inChain)
			if err != nil {
				return nil, err
			}
			if chosen != nil {
				return chosen, nil
			}
		case ActionRunList:
			// Control transfers: later entries in this list are skipped
			// even when the sub-list selects nothing.
			return r.selectAction(rs, action.ListName, env, castable, inChain)
		case ActionCast:
			if castable[action.Ability] {
				return action, nil
			}
		}
	}
	return nil, nil
}
