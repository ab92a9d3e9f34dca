package sim

// Adapter supplies all spec-specific game mechanics behind a narrow
// interface: which abilities exist, what they cost and grant, how time
// advances state. The engine, search, and interpreter contain no
// spec-specific conditionals: everything flows through an Adapter chosen
// once at the composition root and passed explicitly.
//
// Implementations MUST be deterministic and free of I/O. State transitions
// mutate the passed State in place; callers clone at branch points.
type Adapter interface {
	// CreateInitialState builds the starting State for a build configuration.
	CreateInitialState(cfg BuildConfig, fightEndMs int64) *State

	// ApplyAbility executes the named ability against st. The ability MUST
	// be present in Available(st); calling it otherwise is a programming
	// error in the caller (interpreter or search defect) and panics.
	ApplyAbility(st *State, id string)

	// AdvanceTime moves st forward by dt milliseconds, expiring timers and
	// regenerating resources and charges deterministically.
	AdvanceTime(st *State, dt int64)

	// Available returns the ids of legally castable abilities, in a
	// deterministic order.
	Available(st *State) []string

	// ScoreImmediate returns the immediate value proxy ("damage per global
	// cooldown") of casting id from st, without mutating st.
	ScoreImmediate(st *State, id string) float64

	// GCD returns the global-cooldown length consumed by casting id from
	// st, in milliseconds. Zero means the ability is off-GCD.
	GCD(st *State, id string) int64

	// FillerAbilities returns the low-stakes default abilities whose
	// mutual disagreements the divergence analyzer treats as search noise.
	FillerAbilities() []string
}

// ExtraRestorer is an optional Adapter hook for restoring spec-specific
// state not covered by the generic snapshot schema.
type ExtraRestorer interface {
	RestoreExtra(st *State, extra map[string]float64)
}

// AbilityClassifier is an optional Adapter hook used for divergence hint
// generation. Adapters that cannot classify simply don't implement it; the
// analyzer falls back to generic hints.
type AbilityClassifier interface {
	// IsGenerator reports whether id primarily generates resources.
	IsGenerator(id string) bool
	// IsSpender reports whether id consumes resources.
	IsSpender(id string) bool
	// HasCooldown reports whether id is cooldown-gated.
	HasCooldown(id string) bool
}
