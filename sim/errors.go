package sim

import (
	"errors"
	"fmt"
)

// Error taxonomy of the engine. Every failure aborts the run and is returned
// to the caller wrapped with context; match with errors.Is.
var (
	// ErrConfiguration: a state update references a process outside the configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrTopology: a topology failed validation or was queried inconsistently.
	ErrTopology = errors.New("topology error")

	// ErrUnknownProcess: a pid is not a member of the topology or configuration.
	ErrUnknownProcess = fmt.Errorf("%w: unknown process", ErrTopology)

	// ErrInvalidDelay: a synchrony model was built with non-positive or inconsistent delays.
	ErrInvalidDelay = errors.New("invalid delay")

	// ErrUnhandledEvent: an algorithm received an event variant it does not handle.
	ErrUnhandledEvent = errors.New("unhandled event")
)

// UnknownProcess returns an error wrapping ErrUnknownProcess for pid.
func UnknownProcess(pid Pid) error {
	return fmt.Errorf("%w %s", ErrUnknownProcess, pid)
}

// UnhandledEvent returns the error an Algorithm must return from OnEvent when
// it receives an event it does not recognize. Algorithms never drop events silently.
func UnhandledEvent(alg Algorithm, ev Event) error {
	return fmt.Errorf("%w: %s cannot handle %T %s", ErrUnhandledEvent, alg.Name(), ev, DescribeEvent(ev))
}
