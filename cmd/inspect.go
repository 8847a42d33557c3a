package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dasim/dasim/sim/scenario"
	"github.com/dasim/dasim/sim/trace"
)

var (
	inspectPath      string // Trace file to read
	inspectAlgorithm string // Algorithm whose types the trace holds
	inspectEvents    bool   // Print every causal edge
)

// inspectTrace loads a trace and prints its summary.
func inspectTrace(path, algorithm string) (*trace.Trace, error) {
	reg, err := scenario.RegistryFor(algorithm)
	if err != nil {
		return nil, err
	}
	tr, err := trace.Load(path, reg)
	if err != nil {
		return nil, err
	}
	if tr.AlgorithmName != algorithm {
		logrus.Warnf("Trace was recorded by %q, decoded with the types of %q", tr.AlgorithmName, algorithm)
	}
	fmt.Print(trace.Summarize(tr))
	if final := tr.Final(); final != nil {
		fmt.Println(final)
	}
	return tr, nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize a recorded trace",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging(nil)
		tr, err := inspectTrace(inspectPath, inspectAlgorithm)
		if err != nil {
			logrus.Fatalf("Cannot read trace: %v", err)
		}
		if inspectEvents {
			for _, e := range tr.Events {
				fmt.Println(e)
			}
		}
		if plotPath != "" {
			if err := trace.RenderSpaceTime(tr, plotPath); err != nil {
				logrus.Fatalf("Cannot render diagram: %v", err)
			}
			logrus.Infof("Space-time diagram written to %s", plotPath)
		}
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectPath, "trace", "", "Trace file (.yaml, .yml or .bin)")
	inspectCmd.Flags().StringVar(&inspectAlgorithm, "algorithm", "learn", "Algorithm that recorded the trace")
	inspectCmd.Flags().BoolVar(&inspectEvents, "events", false, "Print every recorded event")
	inspectCmd.Flags().StringVar(&plotPath, "plot", "", "Write the space-time diagram to this file (.png or .svg)")
	inspectCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	_ = inspectCmd.MarkFlagRequired("trace")

	rootCmd.AddCommand(inspectCmd)
}
