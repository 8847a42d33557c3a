package sim

import (
	"fmt"
	"math"
	"time"
)

// Unreachable is the latest representable simulated instant. Arrival times
// saturate here; a message scheduled at Unreachable is effectively lost.
const Unreachable = time.Duration(math.MaxInt64)

// Topology is the total mapping from process to neighbor set.
// Implementations validate their shape at construction and are immutable.
type Topology interface {
	// Kind names the shape ("complete", "ring", "star", "arbitrary").
	Kind() string
	Processes() ProcessSet
	// NeighborsOf fails with ErrUnknownProcess for a non-member.
	NeighborsOf(pid Pid) (ProcessSet, error)
}

// SynchronyType classifies a synchrony model.
type SynchronyType string

const (
	Asynchronous         SynchronyType = "asynchronous"
	Synchronous          SynchronyType = "synchronous"
	PartiallySynchronous SynchronyType = "partially synchronous"
)

// SynchronyModel computes message arrival times.
// ArrivalTimeFor(t) >= t + MinDelay() for every t (saturating at Unreachable).
type SynchronyModel interface {
	Type() SynchronyType
	MinDelay() time.Duration
	ArrivalTimeFor(sentAt time.Duration) time.Duration
	Describe() SynchronyInfo
}

// SynchronyInfo is the serializable description of a synchrony model.
type SynchronyInfo struct {
	Name   string                   `yaml:"name"`
	Type   SynchronyType            `yaml:"type"`
	Delays map[string]time.Duration `yaml:"-"`
}

// System couples a topology with the synchrony model of its links.
type System struct {
	Topology  Topology
	Synchrony SynchronyModel
}

// NewSystem validates both collaborators are present.
func NewSystem(topology Topology, synchrony SynchronyModel) (System, error) {
	if topology == nil {
		return System{}, fmt.Errorf("%w: system requires a topology", ErrTopology)
	}
	if synchrony == nil {
		return System{}, fmt.Errorf("%w: system requires a synchrony model", ErrInvalidDelay)
	}
	return System{Topology: topology, Synchrony: synchrony}, nil
}

// Processes returns the processes of the system's topology.
func (s System) Processes() ProcessSet {
	return s.Topology.Processes()
}

// SystemInfo is the serializable description of a System stored in traces.
type SystemInfo struct {
	Topology  string             `yaml:"topology"`
	Neighbors map[Pid]ProcessSet `yaml:"neighbors"`
	Synchrony SynchronyInfo      `yaml:"synchrony"`
}

// Describe snapshots the system's adjacency and synchrony parameters.
func (s System) Describe() (SystemInfo, error) {
	info := SystemInfo{
		Topology:  s.Topology.Kind(),
		Neighbors: make(map[Pid]ProcessSet, s.Topology.Processes().Len()),
		Synchrony: s.Synchrony.Describe(),
	}
	for _, pid := range s.Topology.Processes().Slice() {
		neighbors, err := s.Topology.NeighborsOf(pid)
		if err != nil {
			return SystemInfo{}, fmt.Errorf("describing system: %w", err)
		}
		info.Neighbors[pid] = neighbors
	}
	return info, nil
}

// Processes returns the described process set.
func (i SystemInfo) Processes() ProcessSet {
	pids := make([]Pid, 0, len(i.Neighbors))
	for pid := range i.Neighbors {
		pids = append(pids, pid)
	}
	return NewProcessSet(pids...)
}

// SaturatingAdd returns a + b clamped to [0, Unreachable] for non-negative b.
func SaturatingAdd(a, b time.Duration) time.Duration {
	if b > 0 && a > Unreachable-b {
		return Unreachable
	}
	return a + b
}

// Scale returns d * f, clamped to Unreachable. Negative factors yield zero.
func Scale(d time.Duration, f float64) time.Duration {
	if f <= 0 || d <= 0 {
		return 0
	}
	v := float64(d) * f
	if v >= float64(Unreachable) {
		return Unreachable
	}
	return time.Duration(v)
}
