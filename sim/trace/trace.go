// Package trace provides decision-trace recording for APL policy analysis.
// This package has no dependencies on sim/; it stores pure data types plus
// the file cache that persists them.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FormatVersion is bumped whenever the serialized trace layout changes.
// A cached trace with a different version is treated as a miss and
// regenerated, never compared against.
const FormatVersion = 2

// AuraState is the compact form of one buff or dot timer.
type AuraState struct {
	RemainsMs int64 `json:"remains_ms"`
	Stacks    int   `json:"stacks,omitempty"`
}

// CooldownState is the compact form of one cooldown entry.
type CooldownState struct {
	RemainingMs int64 `json:"remaining_ms"`
	Charges     int   `json:"charges"`
}

// Snapshot captures the pre-action state of an actor compactly: only the
// fields needed to reconstruct a full State given the build configuration's
// fixed defaults. Map keys are sorted by the JSON encoder, so serialization
// is deterministic.
type Snapshot struct {
	ClockMs   int64                    `json:"clock_ms"`
	Resources map[string]float64       `json:"resources,omitempty"`
	Buffs     map[string]AuraState     `json:"buffs,omitempty"`
	Dots      map[string]AuraState     `json:"dots,omitempty"`
	Cooldowns map[string]CooldownState `json:"cooldowns,omitempty"`
	Extra     map[string]float64       `json:"extra,omitempty"`
}

// Event captures a single applied action during an interpreter run.
type Event struct {
	GCDIndex  int      `json:"gcd"`
	TimeMs    int64    `json:"time_ms"`
	Ability   string   `json:"ability"`
	Condition string   `json:"condition,omitempty"` // rule text that selected the action
	OffGCD    bool     `json:"off_gcd,omitempty"`
	Snapshot  Snapshot `json:"snapshot"`
}

// Trace is the full decision record of one interpreter run. It is
// content-addressable: Key commits to the (APL text, build config, duration)
// triple plus FormatVersion.
type Trace struct {
	FormatVersion int     `json:"format_version"`
	Key           string  `json:"key"`
	ConfigHash    string  `json:"config_hash"`
	DurationMs    int64   `json:"duration_ms"`
	TotalScore    float64 `json:"total_score"` // accumulated immediate score over all events
	Events        []Event `json:"events"`
}

// New creates a Trace ready for recording.
func New(key, configHash string, durationMs int64) *Trace {
	return &Trace{
		FormatVersion: FormatVersion,
		Key:           key,
		ConfigHash:    configHash,
		DurationMs:    durationMs,
		Events:        make([]Event, 0),
	}
}

// Record appends a decision event and accumulates its immediate score.
func (t *Trace) Record(ev Event, immediateScore float64) {
	t.Events = append(t.Events, ev)
	t.TotalScore += immediateScore
}

// CacheKey derives the content hash a trace is cached under. Any change to
// the build config hash, the APL text, the duration, or the trace format
// yields a different key.
func CacheKey(configHash, aplText string, durationMs int64, version int) string {
	h := sha256.New()
	fmt.Fprintf(h, "v%d\x00%s\x00%d\x00", version, configHash, durationMs)
	h.Write([]byte(aplText))
	return hex.EncodeToString(h.Sum(nil))
}
