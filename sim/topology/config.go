package topology

import (
	"fmt"

	"github.com/dasim/dasim/sim"
)

// Config is the YAML description of a topology.
//
//	kind: ring        # complete | ring | star | arbitrary
//	size: 5           # complete, ring, star (center p1)
//	directed: false   # ring
//	center: 1         # star, with leaves
//	leaves: [2, 3]
//	processes: [4]    # arbitrary, isolated processes
//	edges: [[1, 2], [2, 3]]
//	undirected: true  # arbitrary
type Config struct {
	Kind       string   `yaml:"kind"`
	Size       int      `yaml:"size,omitempty"`
	Directed   bool     `yaml:"directed,omitempty"`
	Center     int      `yaml:"center,omitempty"`
	Leaves     []int    `yaml:"leaves,omitempty"`
	Processes  []int    `yaml:"processes,omitempty"`
	Edges      [][2]int `yaml:"edges,omitempty"`
	Undirected bool     `yaml:"undirected,omitempty"`
}

// Validate checks that the fields required by Kind are present.
// Shape constraints (ring size, self-loops) are left to the constructors.
func (c Config) Validate() error {
	switch c.Kind {
	case KindComplete, KindRing:
		if c.Size <= 0 {
			return fmt.Errorf("%w: topology.size must be positive for %q, got %d", sim.ErrTopology, c.Kind, c.Size)
		}
	case KindStar:
		if c.Size <= 0 && len(c.Leaves) == 0 {
			return fmt.Errorf("%w: star requires topology.size or topology.leaves", sim.ErrTopology)
		}
	case KindArbitrary:
		if len(c.Edges) == 0 && len(c.Processes) == 0 {
			return fmt.Errorf("%w: arbitrary requires topology.edges or topology.processes", sim.ErrTopology)
		}
	case "":
		return fmt.Errorf("%w: topology.kind is required", sim.ErrTopology)
	default:
		return fmt.Errorf("%w: unknown topology.kind %q", sim.ErrTopology, c.Kind)
	}
	return nil
}

// New builds the topology described by c. On error the returned topology is
// a nil interface.
func New(c Config) (sim.Topology, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var (
		topo sim.Topology
		err  error
	)
	switch c.Kind {
	case KindComplete:
		topo, err = CompleteGraphOfSize(c.Size)
	case KindRing:
		topo, err = RingOfSize(c.Size, c.Directed)
	case KindStar:
		if len(c.Leaves) > 0 {
			topo, err = StarOf(sim.Pid(c.Center), toPids(c.Leaves)...)
		} else {
			topo, err = StarOfSize(c.Size)
		}
	default:
		channels := make([]sim.Channel, len(c.Edges))
		for i, e := range c.Edges {
			channels[i] = sim.DirectedChannel(sim.Pid(e[0]), sim.Pid(e[1]))
		}
		topo, err = ArbitraryFrom(toPids(c.Processes), channels, c.Undirected)
	}
	if err != nil {
		return nil, err
	}
	return topo, nil
}

func toPids(ids []int) []sim.Pid {
	pids := make([]sim.Pid, len(ids))
	for i, id := range ids {
		pids[i] = sim.Pid(id)
	}
	return pids
}
