package divergence

import (
	"fmt"

	"github.com/taherbert/dh-apl-sub006/sim"
)

// hintFor classifies an (optimal, actual) pair into a human-readable
// explanation. Adapters that implement sim.AbilityClassifier get
// generator/spender/cooldown-aware hints; anything unrecognized falls back
// to a generic description; hint generation never fails, since the rest of
// the report is still valid.
func hintFor(adapter sim.Adapter, optimal, actual string) string {
	c, ok := adapter.(sim.AbilityClassifier)
	if !ok {
		return genericHint(optimal, actual)
	}

	switch {
	case c.IsSpender(optimal) && c.IsGenerator(actual):
		return fmt.Sprintf("kept generating with %s when spending on %s was better; resources may be pooling past the point of value (check for overcap)", actual, optimal)
	case c.IsGenerator(optimal) && c.IsSpender(actual):
		return fmt.Sprintf("spent on %s when building resources with %s was better; the list may be dumping too eagerly before a payoff window", actual, optimal)
	case c.HasCooldown(optimal) && !c.HasCooldown(actual):
		return fmt.Sprintf("sat on cooldown %s and filled with %s; the usage condition may be too strict", optimal, actual)
	case !c.HasCooldown(optimal) && c.HasCooldown(actual):
		return fmt.Sprintf("burned cooldown %s when %s was better; the usage condition may be too loose", actual, optimal)
	default:
		return genericHint(optimal, actual)
	}
}

func genericHint(optimal, actual string) string {
	return fmt.Sprintf("chose %s where %s scored higher over the lookahead", actual, optimal)
}
