package sim

// Algorithm is the per-process state-transition contract of a distributed
// algorithm. Implementations are supplied by users; the simulator only calls
// these methods, one at a time, never concurrently.
type Algorithm interface {
	// Name identifies the algorithm in logs and traces.
	Name() string

	// InitialState creates the state of pid before the run starts.
	InitialState(pid Pid) (State, error)

	// OnStart is called once per process by Simulator.Start.
	// Embed NoStart for the identity hook.
	OnStart(state State) (State, []Event, error)

	// OnEvent applies ev to the state of its target process and returns the
	// replacement state with the events it produces. An event the algorithm
	// does not recognize must yield UnhandledEvent(alg, ev).
	OnEvent(state State, ev Event) (State, []Event, error)
}

// NoStart provides the default OnStart: keep the state, emit nothing.
type NoStart struct{}

// OnStart returns state unchanged.
func (NoStart) OnStart(state State) (State, []Event, error) {
	return state, nil, nil
}
