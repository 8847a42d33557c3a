package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dasim/dasim/sim/scenario"
	"github.com/dasim/dasim/sim/trace"
)

var (
	// CLI flags shared by run and batch
	scenarioPath string // Path to the scenario YAML file
	seed         int64  // Seed overriding the scenario's seed
	stepLimit    int    // Step limit overriding the scenario's step_limit
	logLevel     string // Log verbosity level

	// CLI flags for run
	tracePath string // Where to write the trace (.yaml, .yml, .bin)
	plotPath  string // Where to write the space-time diagram (.png, .svg)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dasim",
	Short: "Discrete-event simulator for distributed algorithms",
}

// setupLogging applies --log, raised by the scenario's verbosity settings.
func setupLogging(sc *scenario.Scenario) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	if sc != nil {
		level = max(level, sc.Settings.LogLevel(level))
	}
	logrus.SetLevel(level)
}

// loadScenario reads the scenario and applies flag overrides that were set.
func loadScenario(cmd *cobra.Command) (*scenario.Scenario, error) {
	if scenarioPath == "" {
		return nil, fmt.Errorf("--scenario is required")
	}
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("seed") {
		sc.Seed = seed
	}
	if cmd.Flags().Changed("steps") {
		sc.StepLimit = stepLimit
	}
	if tracePath != "" || plotPath != "" {
		sc.Settings.EnableTrace = true
	}
	return sc, sc.Validate()
}

// runScenario builds, executes and persists one run.
func runScenario(sc *scenario.Scenario) (*scenario.Run, error) {
	run, err := sc.Build()
	if err != nil {
		return nil, err
	}
	logrus.Infof("Starting %s (seed=%d, step limit=%d)", sc.Algorithm, sc.Seed, sc.StepLimit)
	if err := run.Execute(); err != nil {
		return nil, err
	}

	s := run.Simulator
	fmt.Printf("Simulation %s after %d steps at %v (%d events pending)\n", s.Status(), s.Steps(), s.Clock(), s.Pending())
	fmt.Println(s.Configuration())

	tr := run.Trace()
	if tr == nil {
		return run, nil
	}
	fmt.Print(trace.Summarize(tr))
	if tracePath != "" {
		if err := tr.Save(tracePath, run.Registry); err != nil {
			return nil, err
		}
	}
	if plotPath != "" {
		if err := trace.RenderSpaceTime(tr, plotPath); err != nil {
			return nil, err
		}
		logrus.Infof("Space-time diagram written to %s", plotPath)
	}
	return run, nil
}

// runCmd executes one simulation described by a scenario file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation from a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := loadScenario(cmd)
		setupLogging(sc)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}
		if _, err := runScenario(sc); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(c *cobra.Command) {
	c.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario YAML file")
	c.Flags().Int64Var(&seed, "seed", 42, "Seed overriding the scenario's seed")
	c.Flags().IntVar(&stepLimit, "steps", 0, "Maximum number of steps (0 = until no event is pending)")
	c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// init sets up CLI flags and subcommands
func init() {
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&tracePath, "trace", "", "Write the trace to this file (.yaml, .yml or .bin)")
	runCmd.Flags().StringVar(&plotPath, "plot", "", "Write the space-time diagram to this file (.png or .svg)")

	rootCmd.AddCommand(runCmd)
}
