package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/taherbert/dh-apl-sub006/sim"
	"github.com/taherbert/dh-apl-sub006/sim/apl"
	"github.com/taherbert/dh-apl-sub006/sim/divergence"
	"github.com/taherbert/dh-apl-sub006/sim/spec"
	"github.com/taherbert/dh-apl-sub006/sim/trace"
)

var (
	tuningPath string // optional YAML tuning file
	reportPath string // formatted report output ("" = stdout)
	jsonPath   string // structured divergence list output (optional)
	noCache    bool   // bypass the trace cache
)

// analyzeCmd runs the full pipeline: trace the APL, replay it against the
// rollout search, and report the divergences.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Trace an APL and report where it diverges from the rollout search",
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

		durationMs := durationSec * 1000
		startTime := time.Now()

		tr, err := obtainTrace(log, adapter, ruleSet, build, durationMs, tuning)
		if err != nil {
			log.Fatalf("%v", err)
		}

		rollout := sim.NewRollout(adapter, tuning.RolloutConfig())
		analyzer := divergence.NewAnalyzer(adapter, rollout, tuning.AnalyzerConfig())
		divs, err := analyzer.Compute(tr, build)
		if err != nil {
			log.Fatalf("divergence analysis: %v", err)
		}

		report := divergence.NewReport(divs, divergence.Metadata{
			APLName:     filepath.Base(aplPath),
			BuildName:   build.Name,
			ConfigHash:  tr.ConfigHash,
			DurationMs:  tr.DurationMs,
			TotalEvents: len(tr.Events),
			TotalScore:  tr.TotalScore,
		}, tuning.AnalyzerConfig().MinImpactPct)

		if jsonPath != "" {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				log.Fatalf("encoding report: %v", err)
			}
			if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
				log.Fatalf("writing report JSON: %v", err)
			}
		}

		doc := report.Format()
		if reportPath == "" {
			fmt.Print(doc)
		} else if err := os.WriteFile(reportPath, []byte(doc), 0o644); err != nil {
			log.Fatalf("writing report: %v", err)
		}

		log.Infof("analysis complete: %d divergences, %d worth validating, %s elapsed",
			len(report.Divergences), len(report.Shortlist), time.Since(startTime).Round(time.Millisecond))
	},
}

// loadTuningIfSet returns the tuning bundle, or nil (defaults) when no
// --tuning flag was given. A nil *TuningBundle yields the tuned defaults.
func loadTuningIfSet() (*TuningBundle, error) {
	if tuningPath == "" {
		return nil, nil
	}
	return LoadTuning(tuningPath)
}

// obtainTrace loads the cached trace for this (APL, build, duration) triple
// or runs the interpreter and caches the result.
func obtainTrace(log interface{ Infof(string, ...any) }, adapter sim.Adapter, ruleSet *apl.RuleSet, build sim.BuildConfig, durationMs int64, tuning *TuningBundle) (*trace.Trace, error) {
	configHash, err := sim.HashConfig(build)
	if err != nil {
		return nil, err
	}
	key := trace.CacheKey(configHash, ruleSet.Source, durationMs, trace.FormatVersion)

	var cache *trace.Cache
	if !noCache {
		cache, err = trace.NewCache(cacheDir)
		if err != nil {
			return nil, err
		}
		if tr, ok, err := cache.Load(key); err != nil {
			return nil, err
		} else if ok {
			log.Infof("loaded cached trace %s (%d events)", key[:12], len(tr.Events))
			return tr, nil
		}
	}

	runner := apl.NewRunner(adapter, tuning.RunnerConfig())
	tr, err := runner.Run(ruleSet, build, durationMs)
	if err != nil {
		return nil, fmt.Errorf("running APL: %w", err)
	}
	log.Infof("traced %d events over %ds", len(tr.Events), durationMs/1000)

	if cache != nil {
		if err := cache.Save(tr); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

func init() {
	analyzeCmd.Flags().StringVar(&tuningPath, "tuning", "", "YAML tuning file (rollout/runner/analyzer knobs)")
	analyzeCmd.Flags().StringVar(&reportPath, "out", "", "Write the formatted report to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&jsonPath, "json", "", "Also write the structured report as JSON to a file")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the trace cache")
	rootCmd.AddCommand(analyzeCmd)
}
