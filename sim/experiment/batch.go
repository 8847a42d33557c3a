// Package experiment runs many independent simulations of one scenario.
package experiment

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/dasim/dasim/sim/scenario"
	"github.com/dasim/dasim/sim/trace"
)

// Result is the outcome of one run of a batch.
type Result struct {
	Seed     int64
	Steps    int
	Clock    time.Duration
	Finished bool
	// Summary is nil unless the scenario enables tracing.
	Summary *trace.Summary
	Err     error
}

// Seeds returns n consecutive seeds starting at first.
func Seeds(first int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = first + int64(i)
	}
	return seeds
}

// RunBatch runs the scenario once per seed on up to parallelism goroutines
// (GOMAXPROCS when parallelism <= 0). Runs share no mutable state, so the
// results do not depend on parallelism. Results are returned in seed order.
// A failing run is reported in its Result; RunBatch itself only fails when
// ctx is cancelled, which is checked between runs.
func RunBatch(ctx context.Context, sc *scenario.Scenario, seeds []int64, parallelism int) ([]Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	parallelism = min(parallelism, max(len(seeds), 1))

	results := make([]Result, len(seeds))
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = runOne(sc.WithSeed(seeds[i]))
			}
		}()
	}

	var cancelled error
feed:
	for i := range seeds {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	if cancelled != nil {
		return nil, fmt.Errorf("batch cancelled: %w", cancelled)
	}
	return results, nil
}

func runOne(sc *scenario.Scenario) (res Result) {
	res.Seed = sc.Seed
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("run with seed %d panicked: %v", sc.Seed, r)
		}
	}()

	run, err := sc.Build()
	if err != nil {
		res.Err = err
		return res
	}
	res.Err = run.Execute()
	res.Steps = run.Simulator.Steps()
	res.Clock = run.Simulator.Clock()
	res.Finished = run.Simulator.IsFinished()
	if tr := run.Trace(); tr != nil {
		res.Summary = trace.Summarize(tr)
	}
	logrus.Debugf("seed %d: %d steps, clock %v, finished=%v", res.Seed, res.Steps, res.Clock, res.Finished)
	return res
}

// Aggregate summarizes a batch.
type Aggregate struct {
	Runs        int
	Failed      int
	Unfinished  int
	MeanSteps   float64
	StdDevSteps float64
	MeanClock   time.Duration
	MaxClock    time.Duration
}

// Summarize aggregates the successful runs of a batch.
func Summarize(results []Result) Aggregate {
	agg := Aggregate{Runs: len(results)}
	steps := make([]float64, 0, len(results))
	clocks := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			agg.Failed++
			continue
		}
		if !r.Finished {
			agg.Unfinished++
		}
		steps = append(steps, float64(r.Steps))
		clocks = append(clocks, float64(r.Clock))
		agg.MaxClock = max(agg.MaxClock, r.Clock)
	}
	if len(steps) > 0 {
		agg.MeanSteps = stat.Mean(steps, nil)
		agg.MeanClock = time.Duration(stat.Mean(clocks, nil))
	}
	if len(steps) > 1 {
		agg.StdDevSteps = stat.StdDev(steps, nil)
	}
	return agg
}

func (a Aggregate) String() string {
	return fmt.Sprintf("runs=%d failed=%d unfinished=%d steps=%.1f±%.1f clock(mean=%v max=%v)",
		a.Runs, a.Failed, a.Unfinished, a.MeanSteps, a.StdDevSteps, a.MeanClock, a.MaxClock)
}
