package trace

import (
	"fmt"
	"sort"
)

// Summary aggregates statistics from a Trace.
type Summary struct {
	TotalEvents    int
	OnGCDEvents    int
	OffGCDEvents   int
	TotalScore     float64
	ScorePerSecond float64
	CastCounts     map[string]int // ability id → number of casts
}

// Summarize computes aggregate statistics from a Trace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *Trace) *Summary {
	summary := &Summary{
		CastCounts: make(map[string]int),
	}
	if t == nil {
		return summary
	}

	summary.TotalEvents = len(t.Events)
	for _, ev := range t.Events {
		summary.CastCounts[ev.Ability]++
		if ev.OffGCD {
			summary.OffGCDEvents++
		} else {
			summary.OnGCDEvents++
		}
	}

	summary.TotalScore = t.TotalScore
	if t.DurationMs > 0 {
		summary.ScorePerSecond = t.TotalScore / (float64(t.DurationMs) / 1000.0)
	}

	return summary
}

// Print displays the summary at the end of a trace run.
func (s *Summary) Print() {
	fmt.Println("=== Trace Summary ===")
	fmt.Printf("Total Actions    : %d (%d on-GCD, %d off-GCD)\n", s.TotalEvents, s.OnGCDEvents, s.OffGCDEvents)
	fmt.Printf("Total Score      : %.1f\n", s.TotalScore)
	fmt.Printf("Score / Second   : %.1f\n", s.ScorePerSecond)

	ids := make([]string, 0, len(s.CastCounts))
	for id := range s.CastCounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("  %-24s : %d casts\n", id, s.CastCounts[id])
	}
}
