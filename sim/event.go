package sim

import (
	"fmt"
	"reflect"
)

// Event defines the interface for all simulation events.
// Each event is consumed by exactly one target process. Concrete events are
// either a Signal or a Message, chosen by embedding SignalBase or MessageBase.
type Event interface {
	Target() Pid
}

// Signal is an event originating locally at its target (no sender).
type Signal interface {
	Event
	signal()
}

// Message is an event sent by one process and received by its target.
type Message interface {
	Event
	Sender() Pid
	message()
}

// SignalBase is embedded by every concrete signal type.
//
//	type Start struct {
//		sim.SignalBase `yaml:",inline"`
//	}
type SignalBase struct {
	To Pid `yaml:"target"`
}

// Target returns the process the signal fires at.
func (b SignalBase) Target() Pid { return b.To }

func (SignalBase) signal() {}

// MessageBase is embedded by every concrete message type.
type MessageBase struct {
	To   Pid `yaml:"target"`
	From Pid `yaml:"sender"`
}

// Target returns the receiving process.
func (b MessageBase) Target() Pid { return b.To }

// Sender returns the sending process.
func (b MessageBase) Sender() Pid { return b.From }

func (MessageBase) message() {}

// EventKind names the closed set of event variants.
type EventKind string

const (
	KindSignal  EventKind = "signal"
	KindMessage EventKind = "message"
	// KindUnknown is only reported for values that embed neither base type.
	KindUnknown EventKind = "unknown"
)

// KindOf returns the variant of ev.
func KindOf(ev Event) EventKind {
	switch ev.(type) {
	case Message:
		return KindMessage
	case Signal:
		return KindSignal
	default:
		return KindUnknown
	}
}

// DescribeEvent renders ev as Name(@target; sender=...) for logs and errors.
func DescribeEvent(ev Event) string {
	if ev == nil {
		return "<nil>"
	}
	name := reflect.TypeOf(ev).Name()
	if name == "" {
		name = fmt.Sprintf("%T", ev)
	}
	if m, ok := ev.(Message); ok {
		return fmt.Sprintf("%s(@%s; sender=%s)", name, m.Target(), m.Sender())
	}
	return fmt.Sprintf("%s(@%s)", name, ev.Target())
}
