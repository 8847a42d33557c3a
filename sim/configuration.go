package sim

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Configuration is an immutable snapshot mapping every process to its state.
// Updated returns a new Configuration; the receiver is never modified, so
// snapshots referenced by a trace stay valid for the lifetime of the run.
type Configuration struct {
	states map[Pid]State
}

// NewConfiguration builds a configuration from one state per process.
// A later state for the same pid replaces an earlier one.
func NewConfiguration(states ...State) *Configuration {
	c := &Configuration{states: make(map[Pid]State, len(states))}
	for _, s := range states {
		c.states[s.Pid()] = s
	}
	return c
}

// Updated returns a copy with the entry of each state's owner replaced.
// A state owned by a process outside the domain fails with ErrConfiguration.
// Updated() with no states returns an equal configuration.
func (c *Configuration) Updated(states ...State) (*Configuration, error) {
	next := &Configuration{states: maps.Clone(c.states)}
	if next.states == nil {
		next.states = make(map[Pid]State)
	}
	for _, s := range states {
		if s == nil {
			return nil, fmt.Errorf("%w: nil state", ErrConfiguration)
		}
		if _, ok := c.states[s.Pid()]; !ok {
			return nil, fmt.Errorf("%w: state for %s outside configuration %s", ErrConfiguration, s.Pid(), c.Pids())
		}
		next.states[s.Pid()] = s
	}
	return next, nil
}

// Get returns the state of pid.
func (c *Configuration) Get(pid Pid) (State, bool) {
	s, ok := c.states[pid]
	return s, ok
}

// Contains reports whether pid is in the domain.
func (c *Configuration) Contains(pid Pid) bool {
	_, ok := c.states[pid]
	return ok
}

// Len returns the number of processes.
func (c *Configuration) Len() int {
	return len(c.states)
}

// Pids returns the domain.
func (c *Configuration) Pids() ProcessSet {
	return NewProcessSet(maps.Keys(c.states)...)
}

// States returns the states in ascending pid order.
func (c *Configuration) States() []State {
	pids := maps.Keys(c.states)
	slices.Sort(pids)
	out := make([]State, len(pids))
	for i, pid := range pids {
		out[i] = c.states[pid]
	}
	return out
}

// ChangedFrom returns, in ascending order, the processes present in both
// configurations whose states differ by value.
func (c *Configuration) ChangedFrom(other *Configuration) []Pid {
	var changed []Pid
	for _, s := range c.States() {
		prev, ok := other.states[s.Pid()]
		if !ok {
			continue
		}
		if !StatesEqual(s, prev) {
			changed = append(changed, s.Pid())
		}
	}
	return changed
}

func (c *Configuration) String() string {
	states := c.States()
	if len(states) == 0 {
		return "Configuration: <empty>"
	}
	var sb strings.Builder
	sb.WriteString("Configuration:")
	for _, s := range states {
		sb.WriteString(fmt.Sprintf("\n  %s: %+v", s.Pid(), s))
	}
	return sb.String()
}
