package learn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dasim/dasim/sim"
	"github.com/dasim/dasim/sim/synchrony"
	"github.com/dasim/dasim/sim/topology"
	"github.com/dasim/dasim/sim/trace"
)

func ring3(t *testing.T) sim.Topology {
	t.Helper()
	r, err := topology.RingOfSize(3, false)
	require.NoError(t, err)
	return r
}

// newRun builds a traced simulator over an undirected ring of 3 with 1s
// fixed delays and Start injected at p1 at time 0.
func newRun(t *testing.T, seed int64) *sim.Simulator {
	t.Helper()
	topo := ring3(t)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	delay, err := synchrony.Fixed(time.Second, rng.ForSubsystem(sim.SubsystemNetwork))
	require.NoError(t, err)
	system, err := sim.NewSystem(topo, delay)
	require.NoError(t, err)

	s, err := sim.FromSystem(system, New(topo), 0, sim.Settings{EnableTrace: true})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.ScheduleEvent(0, Start{SignalBase: sim.SignalBase{To: 1}})
	return s
}

func TestInitialState_KnowsOnlyOwnPosition(t *testing.T) {
	alg := New(ring3(t))

	st, err := alg.InitialState(2)
	require.NoError(t, err)

	state := st.(State)
	assert.Equal(t, sim.Pid(2), state.Pid())
	assert.Equal(t, sim.NewProcessSet(1, 3), state.Own.Neighbors)
	assert.False(t, state.HasStarted)
	assert.Equal(t, 0, state.KnownProcesses.Len())
}

func TestInitialState_UnknownProcess(t *testing.T) {
	_, err := New(ring3(t)).InitialState(9)
	assert.ErrorIs(t, err, sim.ErrUnknownProcess)
}

func TestOnEvent_StartFloodsPosition(t *testing.T) {
	// GIVEN p1 not yet started
	alg := New(ring3(t))
	st, _ := alg.InitialState(1)

	// WHEN it receives Start
	next, events, err := alg.OnEvent(st, Start{SignalBase: sim.SignalBase{To: 1}})
	require.NoError(t, err)

	// THEN it sends its position to both neighbors and knows itself
	state := next.(State)
	assert.True(t, state.HasStarted)
	assert.Equal(t, sim.NewProcessSet(1), state.KnownProcesses)
	assert.Equal(t, sim.NewChannelSet(sim.DirectedChannel(1, 2), sim.DirectedChannel(1, 3)), state.KnownChannels)
	require.Len(t, events, 2)
	for _, ev := range events {
		msg := ev.(PositionMsg)
		assert.Equal(t, sim.Pid(1), msg.Sender())
		assert.Equal(t, sim.Pid(1), msg.Position.Origin)
	}

	// AND a second Start is a no-op
	again, events, err := alg.OnEvent(next, Start{SignalBase: sim.SignalBase{To: 1}})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, next, again)
}

func TestOnEvent_PositionStartsAndForwards(t *testing.T) {
	// GIVEN p2 not yet started
	alg := New(ring3(t))
	st, _ := alg.InitialState(2)
	p1, _ := alg.InitialState(1)

	// WHEN it receives p1's position from p1
	msg := PositionMsg{MessageBase: sim.MessageBase{To: 2, From: 1}, Position: p1.(State).Own}
	next, events, err := alg.OnEvent(st, msg)
	require.NoError(t, err)

	// THEN it starts (2 messages), then forwards to p3 only (1 message)
	state := next.(State)
	assert.True(t, state.HasStarted)
	assert.Equal(t, sim.NewProcessSet(1, 2), state.KnownProcesses)
	require.Len(t, events, 3)
	forward := events[2].(PositionMsg)
	assert.Equal(t, sim.Pid(3), forward.Target())
	assert.Equal(t, sim.Pid(1), forward.Position.Origin)

	// AND a duplicate position changes nothing
	again, events, err := alg.OnEvent(next, msg)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, next, again)
}

func TestOnEvent_UnknownEventIsAnError(t *testing.T) {
	type bogus struct{ sim.SignalBase }
	alg := New(ring3(t))
	st, _ := alg.InitialState(1)

	_, _, err := alg.OnEvent(st, bogus{SignalBase: sim.SignalBase{To: 1}})
	assert.ErrorIs(t, err, sim.ErrUnhandledEvent)
}

func TestRun_RingOfThreeLearnsTheGraph(t *testing.T) {
	// GIVEN a ring of 3 with a Start at p1
	s := newRun(t, 42)

	// WHEN run to completion
	require.NoError(t, s.RunToCompletion(0))

	// THEN every process knows all three processes
	assert.True(t, s.IsFinished())
	assert.Equal(t, sim.StatusFinished, s.Status())
	assert.Equal(t, 3*time.Second, s.Clock())
	for _, st := range s.Configuration().States() {
		state := st.(State)
		assert.Equal(t, sim.NewProcessSet(1, 2, 3), state.KnownProcesses, "process %s", state.Pid())
		assert.True(t, state.knowsGraph())
	}

	// AND one snapshot per step and one edge per scheduled event were recorded
	tr := trace.FromSimulator(s)
	require.NotNil(t, tr)
	assert.Len(t, tr.History, 16)
	assert.Len(t, tr.Events, 16)
	assert.Equal(t, 16, s.Steps())
}

func TestRun_StepLimitStopsEarly(t *testing.T) {
	s := newRun(t, 42)

	require.NoError(t, s.RunToCompletion(4))

	assert.Equal(t, 4, s.Steps())
	assert.False(t, s.IsFinished())
	assert.Equal(t, sim.StatusRunning, s.Status())

	// resuming finishes the run
	require.NoError(t, s.RunToCompletion(0))
	assert.True(t, s.IsFinished())
}

func TestRun_TracesAreByteIdentical(t *testing.T) {
	reg := trace.NewRegistry()
	Register(reg)

	encode := func(seed int64) ([]byte, []byte) {
		s := newRun(t, seed)
		require.NoError(t, s.RunToCompletion(0))
		tr := trace.FromSimulator(s)
		y, err := trace.MarshalYAML(tr, reg)
		require.NoError(t, err)
		b, err := trace.MarshalBinary(tr, reg)
		require.NoError(t, err)
		return y, b
	}

	y1, b1 := encode(7)
	y2, b2 := encode(7)
	assert.Equal(t, y1, y2)
	assert.Equal(t, b1, b2)
}

func TestRun_TraceRoundTrip(t *testing.T) {
	reg := trace.NewRegistry()
	Register(reg)
	s := newRun(t, 1)
	require.NoError(t, s.RunToCompletion(0))
	tr := trace.FromSimulator(s)

	for _, format := range []trace.Format{trace.FormatYAML, trace.FormatBinary} {
		data, err := trace.Encode(tr, reg, format)
		require.NoError(t, err)
		got, err := trace.Decode(data, reg, format)
		require.NoError(t, err)
		assert.Equal(t, tr, got, "format %s", format)
	}
}

func TestRun_AsynchronousStillConverges(t *testing.T) {
	// GIVEN a complete graph of 5 over random asynchronous delays
	topo, err := topology.CompleteGraphOfSize(5)
	require.NoError(t, err)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(99))
	delay, err := synchrony.NewAsynchronous(time.Millisecond, 10*time.Millisecond, rng.ForSubsystem(sim.SubsystemNetwork))
	require.NoError(t, err)
	system, err := sim.NewSystem(topo, delay)
	require.NoError(t, err)
	s, err := sim.FromSystem(system, New(topo), 0, sim.Settings{})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.ScheduleEvent(0, Start{SignalBase: sim.SignalBase{To: 3}})

	// WHEN run
	require.NoError(t, s.RunToCompletion(0))

	// THEN everyone learned everyone
	for _, st := range s.Configuration().States() {
		assert.Equal(t, topo.Processes(), st.(State).KnownProcesses)
	}
	assert.Nil(t, s.Recorder())
}
