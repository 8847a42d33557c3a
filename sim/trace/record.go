// Package trace records the causal history of a simulation run.
//
// A Trace is pure data: one configuration snapshot per step and one
// LocalTimedEvent per scheduling call, in the order they happened. It can be
// persisted as a YAML document or a protobuf-wire binary image and read back
// with a Registry that knows the algorithm's event and state types.
package trace

import (
	"fmt"
	"time"

	"github.com/dasim/dasim/sim"
)

// TimedConfiguration is the configuration observed after the step at At.
type TimedConfiguration struct {
	At            time.Duration
	Configuration *sim.Configuration
}

// LocalTimedEvent is the causal edge created by one scheduling call: the
// event was produced (or injected) at SentAt and is delivered at ArrivesAt.
type LocalTimedEvent struct {
	SentAt    time.Duration
	ArrivesAt time.Duration
	Event     sim.Event
}

// IsMessage reports whether the event crossed a channel.
func (e LocalTimedEvent) IsMessage() bool { return sim.KindOf(e.Event) == sim.KindMessage }

// IsSignal reports whether the event is local to its target.
func (e LocalTimedEvent) IsSignal() bool { return sim.KindOf(e.Event) == sim.KindSignal }

// Sender returns the sending process of a message; ok is false for signals.
func (e LocalTimedEvent) Sender() (pid sim.Pid, ok bool) {
	if msg, isMsg := e.Event.(sim.Message); isMsg {
		return msg.Sender(), true
	}
	return 0, false
}

// Receiver returns the target process.
func (e LocalTimedEvent) Receiver() sim.Pid { return e.Event.Target() }

// Latency is the simulated time between scheduling and delivery.
func (e LocalTimedEvent) Latency() time.Duration { return e.ArrivesAt - e.SentAt }

// IsLost reports whether the event was scheduled at the unreachable horizon.
func (e LocalTimedEvent) IsLost() bool { return e.ArrivesAt == sim.Unreachable }

func (e LocalTimedEvent) String() string {
	return fmt.Sprintf("[%v -> %v] %s", e.SentAt, e.ArrivesAt, sim.DescribeEvent(e.Event))
}
