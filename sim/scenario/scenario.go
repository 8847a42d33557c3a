// Package scenario loads a simulation run from a YAML file and wires the
// system, the algorithm and the externally injected signals together.
package scenario

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/dasim/dasim/sim"
	"github.com/dasim/dasim/sim/algo/learn"
	"github.com/dasim/dasim/sim/synchrony"
	"github.com/dasim/dasim/sim/topology"
	"github.com/dasim/dasim/sim/trace"
)

// Scenario is the YAML description of one simulation run.
//
//	seed: 42
//	start_time: 0s
//	step_limit: 0          # 0 = run until the queue drains
//	algorithm: learn
//	topology: {kind: ring, size: 3}
//	synchrony: {model: synchronous, min_delay: 1s, max_delay: 1s}
//	inject:
//	  - {at: 0s, target: 1, signal: start}
//	settings: {verbose: false, debug: false, trace: true}
type Scenario struct {
	Seed      int64            `yaml:"seed"`
	StartTime string           `yaml:"start_time,omitempty"`
	StepLimit int              `yaml:"step_limit,omitempty"`
	Algorithm string           `yaml:"algorithm"`
	Topology  topology.Config  `yaml:"topology"`
	Synchrony synchrony.Config `yaml:"synchrony"`
	Inject    []Injection      `yaml:"inject,omitempty"`
	Settings  sim.Settings     `yaml:"settings"`
}

// Injection is an external signal scheduled before the run starts.
// At is an offset from start_time.
type Injection struct {
	At     string `yaml:"at,omitempty"`
	Target int    `yaml:"target"`
	Signal string `yaml:"signal"`
}

// AlgorithmFactory describes an algorithm a scenario can name.
type AlgorithmFactory struct {
	New func(topo sim.Topology) sim.Algorithm
	// Register records the algorithm's types with a trace registry.
	Register func(reg *trace.Registry)
	// Signals maps injectable signal names to constructors.
	Signals map[string]func(target sim.Pid) sim.Event
}

var algorithms = map[string]AlgorithmFactory{
	learn.Name: {
		New:      func(t sim.Topology) sim.Algorithm { return learn.New(t) },
		Register: learn.Register,
		Signals: map[string]func(sim.Pid) sim.Event{
			"start": func(p sim.Pid) sim.Event { return learn.Start{SignalBase: sim.SignalBase{To: p}} },
		},
	},
}

// RegisterAlgorithm makes an algorithm available to scenarios under name.
// Call it from an init function; it is not safe for concurrent use.
func RegisterAlgorithm(name string, f AlgorithmFactory) {
	if f.New == nil || f.Register == nil {
		panic(fmt.Sprintf("scenario: algorithm %q needs New and Register", name))
	}
	algorithms[name] = f
}

// Algorithms returns the names of every known algorithm, sorted.
func Algorithms() []string {
	names := maps.Keys(algorithms)
	slices.Sort(names)
	return names
}

// RegistryFor returns a trace registry holding the types of the named
// algorithm, for reading traces back.
func RegistryFor(algorithm string) (*trace.Registry, error) {
	f, ok := algorithms[algorithm]
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %q (known: %v)", algorithm, Algorithms())
	}
	reg := trace.NewRegistry()
	f.Register(reg)
	return reg, nil
}

// Load reads and parses a YAML scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &s, nil
}

func parseTime(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %v", field, d)
	}
	return d, nil
}

// Validate checks every field that can be checked without building the run.
func (s *Scenario) Validate() error {
	f, ok := algorithms[s.Algorithm]
	if !ok {
		return fmt.Errorf("unknown algorithm %q (known: %v)", s.Algorithm, Algorithms())
	}
	if s.StepLimit < 0 {
		return fmt.Errorf("step_limit must not be negative, got %d", s.StepLimit)
	}
	if _, err := parseTime("start_time", s.StartTime); err != nil {
		return err
	}
	if err := s.Topology.Validate(); err != nil {
		return err
	}
	if err := s.Synchrony.Validate(); err != nil {
		return err
	}
	for i, in := range s.Inject {
		if _, ok := f.Signals[in.Signal]; !ok {
			return fmt.Errorf("inject[%d]: algorithm %q has no signal %q", i, s.Algorithm, in.Signal)
		}
		if _, err := parseTime(fmt.Sprintf("inject[%d].at", i), in.At); err != nil {
			return err
		}
	}
	return nil
}

// WithSeed returns a copy of s using seed.
func (s *Scenario) WithSeed(seed int64) *Scenario {
	c := *s
	c.Seed = seed
	c.Inject = slices.Clone(s.Inject)
	return &c
}

// Run is a built scenario: a started simulator with its injected signals
// queued, plus what is needed to persist its trace.
type Run struct {
	Scenario  *Scenario
	Simulator *sim.Simulator
	Registry  *trace.Registry
	RNG       *sim.PartitionedRNG
}

// Build validates s and creates the run.
func (s *Scenario) Build() (*Run, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	f := algorithms[s.Algorithm]

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(s.Seed))
	topo, err := topology.New(s.Topology)
	if err != nil {
		return nil, err
	}
	delays, err := synchrony.New(s.Synchrony, rng.ForSubsystem(sim.SubsystemNetwork))
	if err != nil {
		return nil, err
	}
	system, err := sim.NewSystem(topo, delays)
	if err != nil {
		return nil, err
	}

	start, _ := parseTime("start_time", s.StartTime)
	simulator, err := sim.FromSystem(system, f.New(topo), start, s.Settings)
	if err != nil {
		return nil, err
	}
	if err := simulator.Start(); err != nil {
		return nil, err
	}
	for i, in := range s.Inject {
		target := sim.Pid(in.Target)
		if !topo.Processes().Contains(target) {
			return nil, fmt.Errorf("inject[%d]: %w", i, sim.UnknownProcess(target))
		}
		at, _ := parseTime("at", in.At)
		simulator.ScheduleEvent(start+at, f.Signals[in.Signal](target))
	}

	reg, _ := RegistryFor(s.Algorithm)
	logrus.Debugf("Built scenario: algorithm=%s topology=%s synchrony=%s seed=%d",
		s.Algorithm, topo.Kind(), delays.Describe().Name, s.Seed)
	return &Run{Scenario: s, Simulator: simulator, Registry: reg, RNG: rng}, nil
}

// Execute runs the simulator until it finishes or hits the scenario's step limit.
func (r *Run) Execute() error {
	return r.Simulator.RunToCompletion(r.Scenario.StepLimit)
}

// Trace returns the run's trace, nil unless settings.trace is set.
func (r *Run) Trace() *trace.Trace {
	return trace.FromSimulator(r.Simulator)
}
