package trace

import (
	"fmt"
	"reflect"

	"github.com/dasim/dasim/sim"
)

// A persisted snapshot holds either every state of its configuration (full)
// or only the states that differ from the previous snapshot. A step changes
// one process, so most snapshots carry a single state.

// snapshotDelta returns the states to persist for cur given the snapshot
// before it. The comparison is structural so decoding rebuilds cur exactly.
func snapshotDelta(prev, cur *sim.Configuration) (states []sim.State, full bool) {
	if prev == nil || !prev.Pids().Equal(cur.Pids()) {
		return cur.States(), true
	}
	for _, st := range cur.States() {
		old, _ := prev.Get(st.Pid())
		if !reflect.DeepEqual(old, st) {
			states = append(states, st)
		}
	}
	return states, false
}

// applySnapshot rebuilds a configuration from persisted states.
func applySnapshot(prev *sim.Configuration, states []sim.State, full bool) (*sim.Configuration, error) {
	if full {
		return sim.NewConfiguration(states...), nil
	}
	if prev == nil {
		return nil, fmt.Errorf("trace: partial snapshot without a previous one")
	}
	return prev.Updated(states...)
}
