package cmd

import (
	"github.com/spf13/cobra"

	"github.com/taherbert/dh-apl-sub006/sim/spec"
	"github.com/taherbert/dh-apl-sub006/sim/trace"
)

// traceCmd produces (and caches) the decision trace without analyzing it.
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Run an APL and print the trace summary",
	Run: func(cmd *cobra.Command, args []string) {
		log := setupRun()

		catalog, build, ruleSet, err := loadInputs()
		if err != nil {
			log.Fatalf("%v", err)
		}
		tuning, err := loadTuningIfSet()
		if err != nil {
			log.Fatalf("%v", err)
		}
		adapter, err := spec.NewAdapter(catalog, build)
		if err != nil {
			log.Fatalf("%v", err)
		}

		tr, err := obtainTrace(log, adapter, ruleSet, build, durationSec*1000, tuning)
		if err != nil {
			log.Fatalf("%v", err)
		}

		trace.Summarize(tr).Print()
	},
}

func init() {
	traceCmd.Flags().StringVar(&tuningPath, "tuning", "", "YAML tuning file (rollout/runner/analyzer knobs)")
	traceCmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the trace cache")
	rootCmd.AddCommand(traceCmd)
}
