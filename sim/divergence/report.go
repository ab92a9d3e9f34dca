package divergence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/taherbert/dh-apl-sub006/sim/trace"
)

// Metadata identifies the analysis run a report describes.
type Metadata struct {
	APLName     string  `json:"apl_name"`
	BuildName   string  `json:"build_name"`
	ConfigHash  string  `json:"config_hash"`
	DurationMs  int64   `json:"duration_ms"`
	TotalEvents int     `json:"total_events"`
	TotalScore  float64 `json:"total_score"`
}

// Report is the ranked, consumable result of a divergence analysis: the
// full ranked list for automated consumption and a high-confidence
// shortlist worth validating against a high-fidelity simulator.
type Report struct {
	Meta        Metadata     `json:"meta"`
	Divergences []Divergence `json:"divergences"`
	Shortlist   []Divergence `json:"shortlist"`
}

// maximum per-divergence detail sections in the formatted document
const maxDetails = 20

// NewReport ranks divergences by estimated impact (then raw delta, then
// trace position, keeping the order deterministic) and extracts the
// shortlist of high-confidence findings at or above minImpactPct.
func NewReport(divs []Divergence, meta Metadata, minImpactPct float64) *Report {
	ranked := make([]Divergence, len(divs))
	copy(ranked, divs)
	sort.SliceStable(ranked, func(i, j int) bool {
		ii, ji := impactValue(ranked[i]), impactValue(ranked[j])
		if ii != ji {
			return ii > ji
		}
		if ranked[i].Delta != ranked[j].Delta {
			return ranked[i].Delta > ranked[j].Delta
		}
		return ranked[i].GCDIndex < ranked[j].GCDIndex
	})

	var shortlist []Divergence
	for _, d := range ranked {
		if d.Confidence == ConfidenceHigh && d.ImpactPct != nil && *d.ImpactPct >= minImpactPct {
			shortlist = append(shortlist, d)
		}
	}

	return &Report{Meta: meta, Divergences: ranked, Shortlist: shortlist}
}

func impactValue(d Divergence) float64 {
	if d.ImpactPct == nil {
		return 0
	}
	return *d.ImpactPct
}

// Format renders the human-facing document: a summary table of the
// highest-impact divergences, per-divergence detail, and the shortlist.
func (r *Report) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Divergence Report ===\n")
	fmt.Fprintf(&b, "APL          : %s\n", r.Meta.APLName)
	fmt.Fprintf(&b, "Build        : %s (%s)\n", r.Meta.BuildName, shortHash(r.Meta.ConfigHash))
	fmt.Fprintf(&b, "Duration     : %.1fs\n", float64(r.Meta.DurationMs)/1000.0)
	fmt.Fprintf(&b, "Trace Events : %d\n", r.Meta.TotalEvents)
	fmt.Fprintf(&b, "Total Score  : %.1f\n", r.Meta.TotalScore)
	fmt.Fprintf(&b, "Divergences  : %d\n\n", len(r.Divergences))

	if len(r.Divergences) == 0 {
		b.WriteString("No divergences above the noise threshold. The rule set tracks the search everywhere it was sampled.\n")
		return b.String()
	}

	b.WriteString("--- Summary (ranked by estimated impact) ---\n")
	fmt.Fprintf(&b, "%-5s %-8s %-24s %-24s %-10s %-6s %-8s %-5s\n",
		"GCD", "Time", "Actual", "Optimal", "Delta", "Count", "Impact", "Conf")
	for i, d := range r.Divergences {
		if i >= maxDetails {
			fmt.Fprintf(&b, "... and %d more\n", len(r.Divergences)-maxDetails)
			break
		}
		fmt.Fprintf(&b, "%-5d %-8s %-24s %-24s %-10.1f %-6d %-8s %-5s\n",
			d.GCDIndex, formatTime(d.TimeMs), d.Actual, d.Optimal, d.Delta, d.Count, formatImpact(d), d.Confidence)
	}
	b.WriteString("\n--- Details ---\n")

	for i, d := range r.Divergences {
		if i >= maxDetails {
			break
		}
		fmt.Fprintf(&b, "\n[%d] GCD %d at %s: %s\n", i+1, d.GCDIndex, formatTime(d.TimeMs), d.Hint)
		fmt.Fprintf(&b, "    actual  : %-24s rollout %.1f (immediate %.1f)\n", d.Actual, d.ActualScore, d.ActualImmed)
		fmt.Fprintf(&b, "    optimal : %-24s rollout %.1f\n", d.Optimal, d.OptimalScore)
		fmt.Fprintf(&b, "    delta %.1f, seen %dx, impact %s, confidence %s\n", d.Delta, d.Count, formatImpact(d), d.Confidence)
		fmt.Fprintf(&b, "    state   : %s\n", formatSnapshot(d.Snapshot))
	}

	b.WriteString("\n--- Worth validating (high confidence, impact >= threshold) ---\n")
	if len(r.Shortlist) == 0 {
		b.WriteString("none\n")
	}
	for _, d := range r.Shortlist {
		fmt.Fprintf(&b, "%s -> %s: %s impact, %dx: %s\n", d.Actual, d.Optimal, formatImpact(d), d.Count, d.Hint)
	}

	return b.String()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func formatTime(ms int64) string {
	return fmt.Sprintf("%.1fs", float64(ms)/1000.0)
}

func formatImpact(d Divergence) string {
	if d.ImpactPct == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *d.ImpactPct)
}

// formatSnapshot renders the compact state with sorted keys so the document
// is byte-stable across runs.
func formatSnapshot(s trace.Snapshot) string {
	var parts []string
	for _, name := range sortedKeys(s.Resources) {
		parts = append(parts, fmt.Sprintf("%s=%.0f", name, s.Resources[name]))
	}
	for _, name := range sortedKeys(s.Buffs) {
		a := s.Buffs[name]
		parts = append(parts, fmt.Sprintf("buff.%s=%.1fs", name, float64(a.RemainsMs)/1000.0))
	}
	for _, name := range sortedKeys(s.Dots) {
		a := s.Dots[name]
		parts = append(parts, fmt.Sprintf("dot.%s=%.1fs", name, float64(a.RemainsMs)/1000.0))
	}
	for _, name := range sortedKeys(s.Cooldowns) {
		cd := s.Cooldowns[name]
		if cd.Charges > 0 {
			parts = append(parts, fmt.Sprintf("cd.%s=ready(%d)", name, cd.Charges))
		} else {
			parts = append(parts, fmt.Sprintf("cd.%s=%.1fs", name, float64(cd.RemainingMs)/1000.0))
		}
	}
	if len(parts) == 0 {
		return "(initial)"
	}
	return strings.Join(parts, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
