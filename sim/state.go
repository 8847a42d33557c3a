package sim

import "reflect"

// State is the opaque per-process value owned by an Algorithm.
// States are replaced wholesale on every transition, never mutated in place:
// a concrete state type is a value type with copy-with-overrides helpers, so
// earlier snapshots (held by a Trace, for instance) stay valid.
type State interface {
	Pid() Pid
}

// StateBase is embedded by every concrete state type.
type StateBase struct {
	Owner Pid `yaml:"pid"`
}

// Pid returns the process owning the state.
func (b StateBase) Pid() Pid { return b.Owner }

// stateEqualer is implemented by states that define their own value equality.
type stateEqualer interface {
	Equal(other State) bool
}

// StatesEqual compares two states by value. A state type may provide
// Equal(State) bool; when either side does, every Equal on offer must agree,
// so StatesEqual(a, b) == StatesEqual(b, a). Otherwise the comparison is
// structural.
func StatesEqual(a, b State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	eqA, okA := a.(stateEqualer)
	eqB, okB := b.(stateEqualer)
	if !okA && !okB {
		return reflect.DeepEqual(a, b)
	}
	if okA && !eqA.Equal(b) {
		return false
	}
	return !okB || eqB.Equal(a)
}
