// Package sim provides the core discrete-event simulation engine for dasim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: Event variants (Signal, Message) delivered to exactly one process
//   - configuration.go: immutable snapshot of every process state
//   - simulator.go: the event loop (pop → OnEvent → install → reschedule)
//
// # Architecture
//
// The sim package defines interfaces and bridge types; implementations live in
// sub-packages:
//   - sim/topology/: network shapes (complete graph, ring, star, arbitrary)
//   - sim/synchrony/: message delay models (synchronous, asynchronous, ...)
//   - sim/trace/: causal trace recording and its persistence formats
//   - sim/algo/: reference distributed algorithms
//   - sim/scenario/: YAML scenario files turned into ready-to-run simulators
//   - sim/experiment/: parallel batches of independent runs
//
// sim/trace registers its recorder via an init() function that sets the
// package-level factory variable NewRecorderFunc.
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Algorithm: initial state, start hook and event transition of one process
//   - Topology: process set and neighbor sets
//   - SynchronyModel: arrival time of a message given its send time
//   - Recorder: receives configuration snapshots and causal send/receive pairs
//
// Simulated time is a time.Duration since the origin of the run. Nothing in
// this package reads the wall clock.
package sim
