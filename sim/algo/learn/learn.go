// Package learn implements topology learning by flooding positions.
//
// Every process starts knowing only its own neighbors. On start it floods its
// Position; each process forwards every position it has not seen before to
// all neighbors except the one it came from. A process knows the graph once
// every channel it has heard of has both endpoints among the processes it
// has heard of, at which point it signals GraphIsKnown to itself.
package learn

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dasim/dasim/sim"
	"github.com/dasim/dasim/sim/trace"
)

// Name is the algorithm name reported in logs and traces.
const Name = "learn"

// Position is what a process knows about itself: its id and its neighbors.
type Position struct {
	Origin    sim.Pid        `yaml:"origin"`
	Neighbors sim.ProcessSet `yaml:"neighbors"`
}

// channels returns the directed channels from the origin to each neighbor.
func (p Position) channels() sim.ChannelSet {
	out := make([]sim.Channel, 0, p.Neighbors.Len())
	for _, n := range p.Neighbors.Slice() {
		out = append(out, sim.DirectedChannel(p.Origin, n))
	}
	return sim.NewChannelSet(out...)
}

func (p Position) String() string {
	return fmt.Sprintf("Position(%s, %s)", p.Origin, p.Neighbors)
}

// Start wakes a process up.
type Start struct {
	sim.SignalBase `yaml:",inline"`
}

// PositionMsg carries a Position through the network.
type PositionMsg struct {
	sim.MessageBase `yaml:",inline"`
	Position        Position `yaml:"position"`
}

// GraphIsKnown fires once a process has learned the whole graph.
type GraphIsKnown struct {
	sim.SignalBase `yaml:",inline"`
}

// State is the state of one process.
type State struct {
	sim.StateBase  `yaml:",inline"`
	Own            Position       `yaml:"own"`
	KnownProcesses sim.ProcessSet `yaml:"known_processes"`
	KnownChannels  sim.ChannelSet `yaml:"known_channels"`
	HasStarted     bool           `yaml:"has_started"`
}

// knowsGraph reports whether every known channel has both endpoints known.
func (s State) knowsGraph() bool {
	return s.KnownChannels.Endpoints().IsSubsetOf(s.KnownProcesses)
}

// Algorithm is the topology-learning algorithm over a fixed topology.
type Algorithm struct {
	sim.NoStart
	topology sim.Topology
}

// New returns the algorithm for processes of topology.
func New(topology sim.Topology) *Algorithm {
	return &Algorithm{topology: topology}
}

func (a *Algorithm) Name() string { return Name }

// InitialState gives pid its own position and nothing else.
func (a *Algorithm) InitialState(pid sim.Pid) (sim.State, error) {
	neighbors, err := a.topology.NeighborsOf(pid)
	if err != nil {
		return nil, err
	}
	return State{
		StateBase: sim.StateBase{Owner: pid},
		Own:       Position{Origin: pid, Neighbors: neighbors},
	}, nil
}

// OnEvent implements the flooding rules.
func (a *Algorithm) OnEvent(old sim.State, ev sim.Event) (sim.State, []sim.Event, error) {
	state, ok := old.(State)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s got state %T", sim.ErrConfiguration, Name, old)
	}

	switch e := ev.(type) {
	case Start:
		if state.HasStarted {
			return state, nil, nil
		}
		next, events := doStart(state)
		return next, events, nil

	case PositionMsg:
		var events []sim.Event
		if !state.HasStarted {
			state, events = doStart(state)
		}
		if state.KnownProcesses.Contains(e.Position.Origin) {
			return state, events, nil
		}
		state.KnownProcesses = state.KnownProcesses.Add(e.Position.Origin)
		state.KnownChannels = state.KnownChannels.Union(e.Position.channels())
		for _, n := range state.Own.Neighbors.Slice() {
			if n == e.Sender() {
				continue
			}
			events = append(events, PositionMsg{
				MessageBase: sim.MessageBase{To: n, From: state.Pid()},
				Position:    e.Position,
			})
		}
		if state.knowsGraph() {
			events = append(events, GraphIsKnown{SignalBase: sim.SignalBase{To: state.Pid()}})
		}
		return state, events, nil

	case GraphIsKnown:
		logrus.Debugf("%s knows the graph: %s", state.Pid(), state.KnownProcesses)
		return state, nil, nil

	default:
		return nil, nil, sim.UnhandledEvent(a, ev)
	}
}

// doStart floods the own position and resets knowledge to it.
func doStart(state State) (State, []sim.Event) {
	events := make([]sim.Event, 0, state.Own.Neighbors.Len())
	for _, n := range state.Own.Neighbors.Slice() {
		events = append(events, PositionMsg{
			MessageBase: sim.MessageBase{To: n, From: state.Own.Origin},
			Position:    state.Own,
		})
	}
	state.KnownProcesses = sim.NewProcessSet(state.Own.Origin)
	state.KnownChannels = state.Own.channels()
	state.HasStarted = true
	return state, events
}

// Register records the event and state types with a trace registry.
func Register(reg *trace.Registry) {
	trace.RegisterEvent[Start](reg, "learn.start")
	trace.RegisterEvent[PositionMsg](reg, "learn.position")
	trace.RegisterEvent[GraphIsKnown](reg, "learn.graph_is_known")
	trace.RegisterState[State](reg, "learn.state")
}
