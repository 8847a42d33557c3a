// Package topology implements the network shapes a system can be built on.
// Every constructor validates eagerly; queries never re-validate.
package topology

import (
	"fmt"

	"github.com/dasim/dasim/sim"
)

// Kinds of topology.
const (
	KindComplete  = "complete"
	KindRing      = "ring"
	KindStar      = "star"
	KindArbitrary = "arbitrary"
)

// pidsOfSize returns p1..pn.
func pidsOfSize(n int) []sim.Pid {
	pids := make([]sim.Pid, n)
	for i := range pids {
		pids[i] = sim.Pid(i + 1)
	}
	return pids
}

// === CompleteGraph ===

// CompleteGraph connects every process to every other process.
type CompleteGraph struct {
	processes sim.ProcessSet
}

// CompleteGraphOfSize returns the complete graph on p1..pn.
func CompleteGraphOfSize(n int) (*CompleteGraph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: complete graph size must be positive, got %d", sim.ErrTopology, n)
	}
	return CompleteGraphFrom(pidsOfSize(n)...)
}

// CompleteGraphFrom returns the complete graph on the given processes.
func CompleteGraphFrom(pids ...sim.Pid) (*CompleteGraph, error) {
	processes := sim.NewProcessSet(pids...)
	if processes.Len() == 0 {
		return nil, fmt.Errorf("%w: complete graph needs at least one process", sim.ErrTopology)
	}
	return &CompleteGraph{processes: processes}, nil
}

func (g *CompleteGraph) Kind() string { return KindComplete }
func (g *CompleteGraph) Processes() sim.ProcessSet { return g.processes }

// NeighborsOf returns every process except pid.
func (g *CompleteGraph) NeighborsOf(pid sim.Pid) (sim.ProcessSet, error) {
	if !g.processes.Contains(pid) {
		return sim.ProcessSet{}, sim.UnknownProcess(pid)
	}
	return g.processes.Without(pid), nil
}

// === Ring ===

// Ring arranges processes in ascending pid order, closed into a cycle.
// Undirected rings link each process to its predecessor and successor;
// directed rings only to its successor.
type Ring struct {
	order    []sim.Pid
	index    map[sim.Pid]int
	directed bool
}

// RingOfSize returns the ring p1 → p2 → ... → pn → p1.
func RingOfSize(n int, directed bool) (*Ring, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: ring size must be positive, got %d", sim.ErrTopology, n)
	}
	return RingFrom(directed, pidsOfSize(n)...)
}

// RingFrom returns the ring over pids in ascending order.
// A ring needs two processes, otherwise its only process would neighbor itself.
func RingFrom(directed bool, pids ...sim.Pid) (*Ring, error) {
	order := sim.NewProcessSet(pids...).Slice()
	if len(order) < 2 {
		return nil, fmt.Errorf("%w: ring needs at least 2 distinct processes, got %d", sim.ErrTopology, len(order))
	}
	index := make(map[sim.Pid]int, len(order))
	for i, pid := range order {
		index[pid] = i
	}
	return &Ring{order: order, index: index, directed: directed}, nil
}

func (r *Ring) Kind() string { return KindRing }

// Directed reports whether links only go to the successor.
func (r *Ring) Directed() bool { return r.directed }

func (r *Ring) Processes() sim.ProcessSet { return sim.NewProcessSet(r.order...) }

// NeighborsOf returns the successor (directed) or predecessor and successor.
func (r *Ring) NeighborsOf(pid sim.Pid) (sim.ProcessSet, error) {
	idx, ok := r.index[pid]
	if !ok {
		return sim.ProcessSet{}, sim.UnknownProcess(pid)
	}
	n := len(r.order)
	next := r.order[(idx+1)%n]
	if r.directed {
		return sim.NewProcessSet(next), nil
	}
	prev := r.order[(idx-1+n)%n]
	return sim.NewProcessSet(prev, next), nil
}

// === Star ===

// Star links one center to every leaf; leaves only see the center.
type Star struct {
	center sim.Pid
	leaves sim.ProcessSet
}

// StarOf returns the star with the given center and leaves.
func StarOf(center sim.Pid, leaves ...sim.Pid) (*Star, error) {
	set := sim.NewProcessSet(leaves...)
	if set.Len() < 1 {
		return nil, fmt.Errorf("%w: star needs at least one leaf", sim.ErrTopology)
	}
	if set.Contains(center) {
		return nil, fmt.Errorf("%w: star center %s is also a leaf", sim.ErrTopology, center)
	}
	return &Star{center: center, leaves: set}, nil
}

// StarOfSize returns the star centered on p1 with leaves p2..pn.
func StarOfSize(n int) (*Star, error) {
	if n <= 1 {
		return nil, fmt.Errorf("%w: star size must be at least 2, got %d", sim.ErrTopology, n)
	}
	pids := pidsOfSize(n)
	return StarOf(pids[0], pids[1:]...)
}

func (s *Star) Kind() string { return KindStar }

// Center returns the hub process.
func (s *Star) Center() sim.Pid { return s.center }

func (s *Star) Processes() sim.ProcessSet { return s.leaves.Add(s.center) }

// NeighborsOf returns all leaves for the center and the center for a leaf.
func (s *Star) NeighborsOf(pid sim.Pid) (sim.ProcessSet, error) {
	switch {
	case pid == s.center:
		return s.leaves, nil
	case s.leaves.Contains(pid):
		return sim.NewProcessSet(s.center), nil
	default:
		return sim.ProcessSet{}, sim.UnknownProcess(pid)
	}
}

// === Arbitrary ===

// Arbitrary is the adjacency implied by an explicit list of channels.
type Arbitrary struct {
	processes sim.ProcessSet
	adjacency map[sim.Pid]sim.ProcessSet
}

// ArbitraryFrom builds a graph over processes plus every endpoint of channels.
// With undirected set, every channel also links its receiver back to its
// sender; otherwise directed channels are one-way and undirected ones two-way.
// Self-loops are rejected.
func ArbitraryFrom(processes []sim.Pid, channels []sim.Channel, undirected bool) (*Arbitrary, error) {
	all := sim.NewProcessSet(processes...).Union(sim.NewChannelSet(channels...).Endpoints())
	if all.Len() == 0 {
		return nil, fmt.Errorf("%w: arbitrary graph needs at least one process", sim.ErrTopology)
	}
	adjacency := make(map[sim.Pid]sim.ProcessSet, all.Len())
	for _, pid := range all.Slice() {
		adjacency[pid] = sim.ProcessSet{}
	}
	for _, c := range channels {
		if c.S == c.R {
			return nil, fmt.Errorf("%w: channel %s is a self-loop", sim.ErrTopology, c)
		}
		adjacency[c.S] = adjacency[c.S].Add(c.R)
		if undirected || !c.Directed {
			adjacency[c.R] = adjacency[c.R].Add(c.S)
		}
	}
	return &Arbitrary{processes: all, adjacency: adjacency}, nil
}

// ArbitraryFromPairs builds a graph from [sender, receiver] pairs.
func ArbitraryFromPairs(pairs [][2]sim.Pid, undirected bool) (*Arbitrary, error) {
	channels := make([]sim.Channel, len(pairs))
	for i, p := range pairs {
		channels[i] = sim.DirectedChannel(p[0], p[1])
	}
	return ArbitraryFrom(nil, channels, undirected)
}

func (a *Arbitrary) Kind() string { return KindArbitrary }
func (a *Arbitrary) Processes() sim.ProcessSet { return a.processes }

// NeighborsOf returns the adjacency of pid.
func (a *Arbitrary) NeighborsOf(pid sim.Pid) (sim.ProcessSet, error) {
	neighbors, ok := a.adjacency[pid]
	if !ok {
		return sim.ProcessSet{}, sim.UnknownProcess(pid)
	}
	return neighbors, nil
}
