// sim/simulator.go
package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the lifecycle phase of a Simulator.
// Finished is a property of the queue, not a terminal mode: scheduling a new
// event on a finished simulator makes it Running again.
type Status string

const (
	StatusUnstarted Status = "unstarted"
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
)

// Simulator is the core object that holds simulated time, the current
// configuration and the event loop. A Simulator is used from one goroutine;
// independent simulators share no mutable state.
type Simulator struct {
	system    System
	algorithm Algorithm
	settings  Settings

	clock  time.Duration
	config *Configuration
	// queue has every scheduled, not yet delivered event
	queue    *EventQueue
	recorder Recorder

	started bool
	steps   int
	log     *logrus.Entry
}

// FromSystem builds the initial configuration by asking the algorithm for the
// initial state of every process, in ascending pid order. The returned
// simulator is Unstarted, has an empty queue and its clock at startTime.
func FromSystem(system System, algorithm Algorithm, startTime time.Duration, settings Settings) (*Simulator, error) {
	if system.Topology == nil || system.Synchrony == nil {
		return nil, errors.New("simulator requires a topology and a synchrony model")
	}
	if algorithm == nil {
		return nil, errors.New("simulator requires an algorithm")
	}

	pids := system.Processes().Slice()
	states := make([]State, 0, len(pids))
	for _, pid := range pids {
		state, err := algorithm.InitialState(pid)
		if err != nil {
			return nil, fmt.Errorf("initial state of %s: %w", pid, err)
		}
		if state == nil || state.Pid() != pid {
			return nil, fmt.Errorf("%w: initial state of %s has the wrong owner", ErrConfiguration, pid)
		}
		states = append(states, state)
	}

	s := &Simulator{
		system:    system,
		algorithm: algorithm,
		settings:  settings,
		clock:     startTime,
		config:    NewConfiguration(states...),
		queue:     NewEventQueue(),
		log:       logrus.WithField("algorithm", algorithm.Name()),
	}

	if settings.EnableTrace {
		if NewRecorderFunc == nil {
			return nil, errors.New("tracing requested but no recorder is registered (import sim/trace)")
		}
		info, err := system.Describe()
		if err != nil {
			return nil, err
		}
		s.recorder = NewRecorderFunc(algorithm.Name(), info)
	}
	return s, nil
}

// AttachRecorder replaces the recorder observing the run. A nil recorder
// disables tracing.
func (s *Simulator) AttachRecorder(r Recorder) {
	s.recorder = r
}

// Start runs the start hook of every process, in ascending pid order, and
// schedules the events it produces. The order only affects the discovery
// order of the initial events, not the scheduled set.
func (s *Simulator) Start() error {
	if s.started {
		return errors.New("simulator already started")
	}
	s.started = true
	s.log.Infof("[%v] Starting %d processes", s.clock, s.config.Len())

	for _, pid := range s.config.Pids().Slice() {
		state, _ := s.config.Get(pid)
		next, events, err := s.algorithm.OnStart(state)
		if err != nil {
			return fmt.Errorf("start of %s: %w", pid, err)
		}
		if err := s.install(pid, next); err != nil {
			return fmt.Errorf("start of %s: %w", pid, err)
		}
		if err := s.scheduleAll(events); err != nil {
			return fmt.Errorf("start of %s: %w", pid, err)
		}
	}
	return nil
}

// ScheduleEvent enqueues ev at max(Clock, at); time never moves backward.
// The call is recorded as the causal edge (Clock → effective time, ev).
func (s *Simulator) ScheduleEvent(at time.Duration, ev Event) {
	effective := max(s.clock, at)
	s.queue.Schedule(effective, ev)
	if s.recorder != nil {
		s.recorder.RecordSchedule(s.clock, effective, ev)
	}
	s.log.Tracef("[%v] Scheduled %s at %v", s.clock, DescribeEvent(ev), effective)
}

// AdvanceStep delivers the earliest pending event: one dequeue, one state
// replacement, zero or more newly scheduled events. It is a no-op on an
// empty queue.
func (s *Simulator) AdvanceStep() error {
	next, ok := s.queue.PopNext()
	if !ok {
		return nil
	}
	s.clock = max(s.clock, next.Time)
	ev := next.Event
	pid := ev.Target()

	s.logStep("[%v] step %d: delivering %s", s.clock, s.steps+1, DescribeEvent(ev))

	old, ok := s.config.Get(pid)
	if !ok {
		return fmt.Errorf("step %d at %v: %w", s.steps+1, s.clock, UnknownProcess(pid))
	}
	state, events, err := s.algorithm.OnEvent(old, ev)
	if err != nil {
		return fmt.Errorf("step %d at %v: %w", s.steps+1, s.clock, err)
	}
	if err := s.install(pid, state); err != nil {
		return fmt.Errorf("step %d at %v: %w", s.steps+1, s.clock, err)
	}
	if err := s.scheduleAll(events); err != nil {
		return fmt.Errorf("step %d at %v: %w", s.steps+1, s.clock, err)
	}

	s.steps++
	if s.recorder != nil {
		s.recorder.RecordStep(s.clock, s.config)
	}
	return nil
}

// RunToCompletion advances until the queue is empty or, when stepLimit > 0,
// until stepLimit steps were taken by this call. Reaching the limit is not an
// error; callers check IsFinished to know whether the queue was drained.
func (s *Simulator) RunToCompletion(stepLimit int) error {
	taken := 0
	for !s.IsFinished() && (stepLimit <= 0 || taken < stepLimit) {
		if err := s.AdvanceStep(); err != nil {
			return err
		}
		taken++
	}
	if s.IsFinished() {
		s.log.Infof("[%v] Simulation finished after %d steps", s.clock, s.steps)
	} else {
		s.log.Infof("[%v] Step limit %d reached with %d pending events", s.clock, stepLimit, s.queue.Len())
	}
	return nil
}

// IsFinished reports whether the event queue is empty.
func (s *Simulator) IsFinished() bool {
	return s.queue.Len() == 0
}

// Status returns the lifecycle phase.
func (s *Simulator) Status() Status {
	switch {
	case !s.started:
		return StatusUnstarted
	case s.IsFinished():
		return StatusFinished
	default:
		return StatusRunning
	}
}

// Clock returns the current simulated time.
func (s *Simulator) Clock() time.Duration { return s.clock }

// Configuration returns the current configuration snapshot.
func (s *Simulator) Configuration() *Configuration { return s.config }

// Steps returns the number of delivered events.
func (s *Simulator) Steps() int { return s.steps }

// Pending returns the number of scheduled, undelivered events.
func (s *Simulator) Pending() int { return s.queue.Len() }

// Recorder returns the attached recorder, nil when tracing is disabled.
func (s *Simulator) Recorder() Recorder { return s.recorder }

// System returns the simulated system.
func (s *Simulator) System() System { return s.system }

// Algorithm returns the simulated algorithm.
func (s *Simulator) Algorithm() Algorithm { return s.algorithm }

func (s *Simulator) String() string {
	return fmt.Sprintf("Simulator (%s) @%v:\n%s\nScheduled Events:\n%s",
		s.algorithm.Name(), s.clock, s.config, s.queue)
}

// install replaces the state of pid with state.
func (s *Simulator) install(pid Pid, state State) error {
	if state == nil {
		return fmt.Errorf("%w: %s returned a nil state for %s", ErrConfiguration, s.algorithm.Name(), pid)
	}
	if state.Pid() != pid {
		return fmt.Errorf("%w: %s returned a state of %s while handling %s",
			ErrConfiguration, s.algorithm.Name(), state.Pid(), pid)
	}
	config, err := s.config.Updated(state)
	if err != nil {
		return err
	}
	s.config = config
	return nil
}

// scheduleAll schedules events produced by a transition: signals fire now,
// messages arrive when the synchrony model says so.
func (s *Simulator) scheduleAll(events []Event) error {
	for _, ev := range events {
		at, err := s.arrivalTimeFor(ev)
		if err != nil {
			return err
		}
		s.ScheduleEvent(at, ev)
	}
	return nil
}

func (s *Simulator) arrivalTimeFor(ev Event) (time.Duration, error) {
	switch KindOf(ev) {
	case KindMessage:
		return s.system.Synchrony.ArrivalTimeFor(s.clock), nil
	case KindSignal:
		return s.clock, nil
	default:
		return 0, fmt.Errorf("%w: %T is neither a signal nor a message", ErrUnhandledEvent, ev)
	}
}

func (s *Simulator) logStep(format string, args ...any) {
	if s.settings.IsVerbose {
		s.log.Infof(format, args...)
		return
	}
	s.log.Debugf(format, args...)
}
