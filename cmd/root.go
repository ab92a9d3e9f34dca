package cmd

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/taherbert/dh-apl-sub006/sim"
	"github.com/taherbert/dh-apl-sub006/sim/apl"
	"github.com/taherbert/dh-apl-sub006/sim/spec"
)

// envConfig holds boundary settings that default from the environment and
// can still be overridden per invocation by flags.
type envConfig struct {
	CacheDir string `env:"APL_CACHE_DIR" envDefault:".apl-cache"`
	LogLevel string `env:"APL_LOG_LEVEL" envDefault:"warn"`
}

var (
	// shared CLI flags
	catalogPath string // YAML ability catalog (spec adapter data)
	buildPath   string // YAML build configuration
	aplPath     string // APL rule text
	durationSec int64  // analysis duration in seconds
	cacheDir    string // trace cache directory
	logLevel    string // log verbosity level
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "dh-apl",
	Short: "Decision-quality analysis for action priority lists",
	Long: "Evaluates how far a rule-based action priority list falls short of a\n" +
		"bounded-horizon rollout search over a deterministic combat-state model.",
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaults := envConfig{}
	if err := env.Parse(&defaults); err != nil {
		// Unparseable environment variables should not break --help.
		defaults = envConfig{CacheDir: ".apl-cache", LogLevel: "warn"}
	}

	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "YAML ability catalog path")
	rootCmd.PersistentFlags().StringVar(&buildPath, "build", "", "YAML build configuration path")
	rootCmd.PersistentFlags().StringVar(&aplPath, "apl", "", "APL rule text path")
	rootCmd.PersistentFlags().Int64Var(&durationSec, "duration", 300, "Analysis duration in seconds")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", defaults.CacheDir, "Trace cache directory (env APL_CACHE_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", defaults.LogLevel, "Log level (trace, debug, info, warn, error, fatal, panic) (env APL_LOG_LEVEL)")
}

// setupRun configures logging and returns a run-scoped log entry.
func setupRun() *logrus.Entry {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
	return logrus.WithField("run_id", uuid.NewString()[:8])
}

// loadInputs reads and validates the catalog, build configuration, and APL
// text shared by every subcommand that executes rules.
func loadInputs() (*spec.Catalog, sim.BuildConfig, *apl.RuleSet, error) {
	if catalogPath == "" || buildPath == "" || aplPath == "" {
		return nil, sim.BuildConfig{}, nil, fmt.Errorf("--catalog, --build, and --apl are required")
	}

	catalog, err := spec.LoadCatalog(catalogPath)
	if err != nil {
		return nil, sim.BuildConfig{}, nil, err
	}
	build, err := sim.LoadBuildConfig(buildPath)
	if err != nil {
		return nil, sim.BuildConfig{}, nil, err
	}
	text, err := os.ReadFile(aplPath)
	if err != nil {
		return nil, sim.BuildConfig{}, nil, fmt.Errorf("reading APL: %w", err)
	}
	ruleSet, err := apl.Parse(string(text))
	if err != nil {
		return nil, sim.BuildConfig{}, nil, fmt.Errorf("parsing APL %s: %w", aplPath, err)
	}
	return catalog, build, ruleSet, nil
}
