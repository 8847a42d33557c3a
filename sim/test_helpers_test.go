package sim

import (
	"fmt"
	"time"
)

// Minimal collaborators for kernel tests. The real shapes and delay models
// live in sim/topology and sim/synchrony, which import this package.

// lineTopology connects p1 - p2 - ... - pn in both directions.
type lineTopology struct {
	n int
}

func (l lineTopology) Kind() string { return "line" }

func (l lineTopology) Processes() ProcessSet {
	pids := make([]Pid, l.n)
	for i := range pids {
		pids[i] = Pid(i + 1)
	}
	return NewProcessSet(pids...)
}

func (l lineTopology) NeighborsOf(pid Pid) (ProcessSet, error) {
	if pid < 1 || int(pid) > l.n {
		return ProcessSet{}, UnknownProcess(pid)
	}
	var out []Pid
	if pid > 1 {
		out = append(out, pid-1)
	}
	if int(pid) < l.n {
		out = append(out, pid+1)
	}
	return NewProcessSet(out...), nil
}

// fixedDelay delivers every message exactly d after it was sent.
type fixedDelay struct {
	d time.Duration
}

func (f fixedDelay) Type() SynchronyType { return Synchronous }

func (f fixedDelay) MinDelay() time.Duration { return f.d }

func (f fixedDelay) ArrivalTimeFor(sentAt time.Duration) time.Duration {
	return SaturatingAdd(sentAt, f.d)
}

func (f fixedDelay) Describe() SynchronyInfo {
	return SynchronyInfo{Name: "fixed", Type: Synchronous, Delays: map[string]time.Duration{"delay": f.d}}
}

// wakeUp is the external signal starting a flood.
type wakeUp struct {
	SignalBase
}

// token is forwarded once by every process it reaches.
type token struct {
	MessageBase
	Hops int
}

// stray is a signal floodAlgorithm does not understand.
type stray struct {
	SignalBase
}

// floodState records whether the process has seen the token.
type floodState struct {
	StateBase
	Seen     bool
	Received int
}

// floodAlgorithm forwards the token to every neighbor the first time it is
// seen; later copies are only counted.
type floodAlgorithm struct {
	NoStart
	topology Topology
	// wrongOwner makes OnEvent return a state of another process
	wrongOwner bool
}

func (f *floodAlgorithm) Name() string { return "flood" }

func (f *floodAlgorithm) InitialState(pid Pid) (State, error) {
	return floodState{StateBase: StateBase{Owner: pid}}, nil
}

func (f *floodAlgorithm) OnEvent(state State, ev Event) (State, []Event, error) {
	st, ok := state.(floodState)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected state %T", state)
	}
	if f.wrongOwner {
		st.Owner++
		return st, nil, nil
	}
	hops := 0
	switch e := ev.(type) {
	case wakeUp:
	case token:
		st.Received++
		hops = e.Hops + 1
	default:
		return nil, nil, UnhandledEvent(f, ev)
	}
	if st.Seen {
		return st, nil, nil
	}
	st.Seen = true
	neighbors, err := f.topology.NeighborsOf(st.Pid())
	if err != nil {
		return nil, nil, err
	}
	var out []Event
	for _, n := range neighbors.Slice() {
		out = append(out, token{MessageBase: MessageBase{To: n, From: st.Pid()}, Hops: hops})
	}
	return st, out, nil
}

// stepRecorder collects what the simulator reports.
type stepRecorder struct {
	steps     []time.Duration
	schedules []TimedEvent
}

func (r *stepRecorder) RecordStep(at time.Duration, _ *Configuration) {
	r.steps = append(r.steps, at)
}

func (r *stepRecorder) RecordSchedule(sentAt, arrivesAt time.Duration, ev Event) {
	r.schedules = append(r.schedules, TimedEvent{Time: arrivesAt, Event: ev, Seq: uint64(sentAt)})
}

// newLineSimulator builds a started simulator over a line of n processes.
func newLineSimulator(n int, delay time.Duration) (*Simulator, *floodAlgorithm, error) {
	topo := lineTopology{n: n}
	system, err := NewSystem(topo, fixedDelay{d: delay})
	if err != nil {
		return nil, nil, err
	}
	alg := &floodAlgorithm{topology: topo}
	s, err := FromSystem(system, alg, 0, Settings{})
	if err != nil {
		return nil, nil, err
	}
	if err := s.Start(); err != nil {
		return nil, nil, err
	}
	return s, alg, nil
}
