package experiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dasim/dasim/sim"
	"github.com/dasim/dasim/sim/algo/learn"
	"github.com/dasim/dasim/sim/scenario"
	"github.com/dasim/dasim/sim/synchrony"
	"github.com/dasim/dasim/sim/topology"
)

func asyncScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Algorithm: learn.Name,
		Topology:  topology.Config{Kind: topology.KindComplete, Size: 4},
		Synchrony: synchrony.Config{Model: synchrony.NameAsynchronous, MinDelay: "1ms", BaseDelay: "5ms"},
		Inject:    []scenario.Injection{{Target: 2, Signal: "start"}},
		Settings:  sim.Settings{EnableTrace: true},
	}
}

func TestRunBatch_ResultsIndependentOfParallelism(t *testing.T) {
	// GIVEN the same seeds
	seeds := Seeds(100, 8)

	// WHEN run sequentially and in parallel
	sequential, err := RunBatch(context.Background(), asyncScenario(), seeds, 1)
	require.NoError(t, err)
	parallel, err := RunBatch(context.Background(), asyncScenario(), seeds, 4)
	require.NoError(t, err)

	// THEN every run matches, in seed order
	require.Len(t, parallel, len(seeds))
	for i := range seeds {
		assert.Equal(t, seeds[i], parallel[i].Seed)
		assert.Equal(t, sequential[i], parallel[i], "seed %d", seeds[i])
		assert.NoError(t, parallel[i].Err)
		assert.True(t, parallel[i].Finished)
		require.NotNil(t, parallel[i].Summary)
	}
}

func TestRunBatch_DifferentSeedsDiffer(t *testing.T) {
	results, err := RunBatch(context.Background(), asyncScenario(), []int64{1, 2}, 2)
	require.NoError(t, err)

	assert.NotEqual(t, results[0].Clock, results[1].Clock)
}

func TestRunBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBatch(ctx, asyncScenario(), Seeds(0, 4), 2)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunBatch_InvalidScenario(t *testing.T) {
	sc := asyncScenario()
	sc.Algorithm = "unknown"

	_, err := RunBatch(context.Background(), sc, Seeds(0, 1), 1)
	assert.Error(t, err)
}

func TestRunBatch_RunErrorsAreReported(t *testing.T) {
	// GIVEN an injection at a process outside the topology
	sc := asyncScenario()
	sc.Inject[0].Target = 99

	results, err := RunBatch(context.Background(), sc, Seeds(0, 2), 2)

	// THEN the batch completes and every run carries the error
	require.NoError(t, err)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, sim.ErrUnknownProcess)
	}
	assert.Equal(t, 2, Summarize(results).Failed)
}

func TestSummarize_Aggregates(t *testing.T) {
	results := []Result{
		{Seed: 1, Steps: 10, Clock: 2 * time.Second, Finished: true},
		{Seed: 2, Steps: 20, Clock: 4 * time.Second, Finished: false},
		{Seed: 3, Err: errors.New("boom")},
	}

	agg := Summarize(results)

	assert.Equal(t, 3, agg.Runs)
	assert.Equal(t, 1, agg.Failed)
	assert.Equal(t, 1, agg.Unfinished)
	assert.InDelta(t, 15.0, agg.MeanSteps, 1e-9)
	assert.Equal(t, 3*time.Second, agg.MeanClock)
	assert.Equal(t, 4*time.Second, agg.MaxClock)
	assert.Greater(t, agg.StdDevSteps, 0.0)
	assert.Contains(t, agg.String(), "runs=3")
}
