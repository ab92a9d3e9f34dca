// Package sim provides the core deterministic state model and rollout search
// for APL decision-quality analysis.
//
// # Reading Guide
//
// Start with these three files to understand the engine kernel:
//   - state.go: the combat State (resources, auras, cooldowns, clock) and its invariants
//   - adapter.go: the Adapter interface, the sole seam for spec-specific mechanics
//   - rollout.go: the bounded-horizon greedy search that approximates an optimal action
//
// # Architecture
//
// The sim package defines the state schema and search; concrete behavior
// lives in sub-packages:
//   - sim/spec/: catalog-driven Adapter implementation (YAML ability catalogs)
//   - sim/apl/: the rule interpreter that executes priority-list text
//   - sim/trace/: decision-trace data types and the on-disk trace cache
//   - sim/divergence/: trace replay, divergence scoring, and report generation
//
// An Adapter is constructed once at the composition root and passed
// explicitly through every call; there is no package-level engine state, so
// independent analysis runs are trivially safe to run in parallel.
//
// All computation in this package is deterministic: identical inputs produce
// identical states, traces, and scores. Nothing here performs I/O.
package sim
