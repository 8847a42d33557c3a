package sim

import "time"

// Recorder observes a run: one configuration snapshot per step and one
// causal edge (send time, arrival time, event) per scheduling call.
// sim/trace provides the implementation.
type Recorder interface {
	RecordStep(at time.Duration, config *Configuration)
	RecordSchedule(sentAt, arrivesAt time.Duration, ev Event)
}

// NewRecorderFunc creates the recorder attached when Settings.EnableTrace is
// set. It is registered by sim/trace's init(); it stays nil until that
// package is imported, in which case tracing is unavailable.
var NewRecorderFunc func(algorithmName string, info SystemInfo) Recorder
