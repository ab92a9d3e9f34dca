package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taherbert/dh-apl-sub006/sim/apl"
	"github.com/taherbert/dh-apl-sub006/sim/spec"
)

// checkCmd validates rule text and catalog without running anything.
// Exits non-zero on the first parse or validation error.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an APL file and ability catalog",
	Run: func(cmd *cobra.Command, args []string) {
		log := setupRun()

		if aplPath == "" {
			log.Fatalf("--apl is required")
		}
		text, err := os.ReadFile(aplPath)
		if err != nil {
			log.Fatalf("reading APL: %v", err)
		}
		ruleSet, err := apl.Parse(string(text))
		if err != nil {
			log.Fatalf("parsing APL %s: %v", aplPath, err)
		}

		if catalogPath != "" {
			catalog, err := spec.LoadCatalog(catalogPath)
			if err != nil {
				log.Fatalf("%v", err)
			}
			// Every cast entry must name a cataloged ability; a typo here
			// would otherwise just never match at runtime.
			known := make(map[string]bool, len(catalog.Abilities))
			for _, a := range catalog.Abilities {
				known[a.ID] = true
			}
			for name, list := range ruleSet.Lists {
				for i, action := range list {
					if action.Kind == apl.ActionCast && !known[action.Ability] {
						log.Fatalf("list %q entry %d (line %d): unknown ability %q", name, i+1, action.Line, action.Ability)
					}
				}
			}
		}

		fmt.Printf("ok: %d action lists\n", len(ruleSet.Lists))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
