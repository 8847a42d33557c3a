package trace

import (
	"time"

	"github.com/dasim/dasim/sim"
)

// Trace collects the history and causal events of one simulation run.
// Both slices are append-only.
type Trace struct {
	AlgorithmName string
	System        sim.SystemInfo
	History       []TimedConfiguration
	Events        []LocalTimedEvent
}

// New creates an empty Trace ready for recording.
func New(algorithmName string, system sim.SystemInfo) *Trace {
	return &Trace{
		AlgorithmName: algorithmName,
		System:        system,
		History:       make([]TimedConfiguration, 0),
		Events:        make([]LocalTimedEvent, 0),
	}
}

// AddHistory appends configuration snapshots.
func (t *Trace) AddHistory(entries ...TimedConfiguration) {
	t.History = append(t.History, entries...)
}

// AddEvents appends causal edges.
func (t *Trace) AddEvents(events ...LocalTimedEvent) {
	t.Events = append(t.Events, events...)
}

// RecordStep implements sim.Recorder.
func (t *Trace) RecordStep(at time.Duration, config *sim.Configuration) {
	t.AddHistory(TimedConfiguration{At: at, Configuration: config})
}

// RecordSchedule implements sim.Recorder.
func (t *Trace) RecordSchedule(sentAt, arrivesAt time.Duration, ev sim.Event) {
	t.AddEvents(LocalTimedEvent{SentAt: sentAt, ArrivesAt: arrivesAt, Event: ev})
}

// Final returns the last recorded configuration, or nil for an empty history.
func (t *Trace) Final() *sim.Configuration {
	if len(t.History) == 0 {
		return nil
	}
	return t.History[len(t.History)-1].Configuration
}

// Messages returns the events that crossed a channel, in recording order.
func (t *Trace) Messages() []LocalTimedEvent {
	out := make([]LocalTimedEvent, 0, len(t.Events))
	for _, e := range t.Events {
		if e.IsMessage() {
			out = append(out, e)
		}
	}
	return out
}

// FromSimulator returns the trace attached to s, or nil when tracing is off.
func FromSimulator(s *sim.Simulator) *Trace {
	tr, _ := s.Recorder().(*Trace)
	return tr
}
