package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dasim/dasim/sim/experiment"
)

var (
	batchRuns     int // Number of runs, seeds seed..seed+runs-1
	batchParallel int // Number of concurrent runs
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a scenario over many seeds in parallel",
	Long:  "Run the scenario once per seed (--seed, --seed+1, ...) on --parallel goroutines and print per-run results and aggregates.",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := loadScenario(cmd)
		setupLogging(sc)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}
		if batchRuns <= 0 {
			logrus.Fatalf("--runs must be positive, got %d", batchRuns)
		}
		first := sc.Seed
		if cmd.Flags().Changed("seed") {
			first = seed
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := experiment.RunBatch(ctx, sc, experiment.Seeds(first, batchRuns), batchParallel)
		if err != nil {
			logrus.Fatalf("Batch failed: %v", err)
		}
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("seed=%-6d error: %v\n", r.Seed, r.Err)
				continue
			}
			fmt.Printf("seed=%-6d steps=%-6d clock=%-12v finished=%v\n", r.Seed, r.Steps, r.Clock, r.Finished)
		}
		fmt.Println(experiment.Summarize(results))
	},
}

func init() {
	addScenarioFlags(batchCmd)
	batchCmd.Flags().IntVar(&batchRuns, "runs", 10, "Number of runs")
	batchCmd.Flags().IntVar(&batchParallel, "parallel", 0, "Concurrent runs (0 = GOMAXPROCS)")
	_ = batchCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(batchCmd)
}
