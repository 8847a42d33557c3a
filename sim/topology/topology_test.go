package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dasim/dasim/sim"
)

// noSelfLoops asserts no process is its own neighbor and every neighbor is a member.
func noSelfLoops(t *testing.T, topo sim.Topology) {
	t.Helper()
	for _, pid := range topo.Processes().Slice() {
		neighbors, err := topo.NeighborsOf(pid)
		require.NoError(t, err)
		assert.False(t, neighbors.Contains(pid), "%s neighbors itself in %s", pid, topo.Kind())
		assert.True(t, neighbors.IsSubsetOf(topo.Processes()), "%s has a foreign neighbor", pid)
	}
}

func TestCompleteGraph_EveryProcessSeesAllOthers(t *testing.T) {
	// GIVEN a complete graph of 4 processes
	g, err := CompleteGraphOfSize(4)
	require.NoError(t, err)

	// THEN each process has n-1 neighbors
	assert.Equal(t, sim.NewProcessSet(1, 2, 3, 4), g.Processes())
	for _, pid := range g.Processes().Slice() {
		neighbors, err := g.NeighborsOf(pid)
		require.NoError(t, err)
		assert.Equal(t, 3, neighbors.Len())
	}
	noSelfLoops(t, g)
}

func TestCompleteGraph_SingleProcessHasNoNeighbors(t *testing.T) {
	g, err := CompleteGraphFrom(7)
	require.NoError(t, err)

	neighbors, err := g.NeighborsOf(7)
	require.NoError(t, err)
	assert.Equal(t, 0, neighbors.Len())
}

func TestRing_UndirectedHasTwoNeighbors(t *testing.T) {
	// GIVEN an undirected ring of 5
	r, err := RingOfSize(5, false)
	require.NoError(t, err)

	// THEN p1 neighbors p5 and p2, and every process has 2 neighbors
	n1, err := r.NeighborsOf(1)
	require.NoError(t, err)
	assert.Equal(t, sim.NewProcessSet(2, 5), n1)
	for _, pid := range r.Processes().Slice() {
		neighbors, _ := r.NeighborsOf(pid)
		assert.Equal(t, 2, neighbors.Len(), "neighbors of %s", pid)
	}
	noSelfLoops(t, r)
}

func TestRing_DirectedHasOnlySuccessor(t *testing.T) {
	r, err := RingOfSize(3, true)
	require.NoError(t, err)

	tests := []struct {
		pid  sim.Pid
		next sim.Pid
	}{
		{1, 2}, {2, 3}, {3, 1},
	}
	for _, tt := range tests {
		neighbors, err := r.NeighborsOf(tt.pid)
		require.NoError(t, err)
		assert.Equal(t, sim.NewProcessSet(tt.next), neighbors, "successor of %s", tt.pid)
	}
	assert.True(t, r.Directed())
}

func TestRing_OfTwoIsAPair(t *testing.T) {
	r, err := RingOfSize(2, false)
	require.NoError(t, err)

	n1, _ := r.NeighborsOf(1)
	assert.Equal(t, sim.NewProcessSet(2), n1)
	noSelfLoops(t, r)
}

func TestRingFrom_UsesAscendingOrder(t *testing.T) {
	// GIVEN pids given out of order
	r, err := RingFrom(true, 30, 10, 20)
	require.NoError(t, err)

	// THEN the cycle follows ascending pid order
	n10, _ := r.NeighborsOf(10)
	n30, _ := r.NeighborsOf(30)
	assert.Equal(t, sim.NewProcessSet(20), n10)
	assert.Equal(t, sim.NewProcessSet(10), n30)
}

func TestStar_CenterAndLeaves(t *testing.T) {
	s, err := StarOfSize(4)
	require.NoError(t, err)

	center, err := s.NeighborsOf(1)
	require.NoError(t, err)
	assert.Equal(t, sim.NewProcessSet(2, 3, 4), center)

	leaf, err := s.NeighborsOf(3)
	require.NoError(t, err)
	assert.Equal(t, sim.NewProcessSet(1), leaf)

	assert.Equal(t, sim.Pid(1), s.Center())
	noSelfLoops(t, s)
}

func TestArbitrary_DirectedAndUndirectedEdges(t *testing.T) {
	// GIVEN a directed edge 1->2 and an undirected edge {2,3}
	a, err := ArbitraryFrom([]sim.Pid{9}, []sim.Channel{
		sim.DirectedChannel(1, 2),
		sim.UndirectedChannel(3, 2),
	}, false)
	require.NoError(t, err)

	// THEN adjacency follows channel direction and isolated processes are kept
	n1, _ := a.NeighborsOf(1)
	n2, _ := a.NeighborsOf(2)
	n3, _ := a.NeighborsOf(3)
	n9, _ := a.NeighborsOf(9)
	assert.Equal(t, sim.NewProcessSet(2), n1)
	assert.Equal(t, sim.NewProcessSet(3), n2)
	assert.Equal(t, sim.NewProcessSet(2), n3)
	assert.Equal(t, 0, n9.Len())
	assert.Equal(t, sim.NewProcessSet(1, 2, 3, 9), a.Processes())
}

func TestArbitraryFromPairs_UndirectedAddsReverseLinks(t *testing.T) {
	a, err := ArbitraryFromPairs([][2]sim.Pid{{1, 2}, {2, 3}}, true)
	require.NoError(t, err)

	n2, _ := a.NeighborsOf(2)
	assert.Equal(t, sim.NewProcessSet(1, 3), n2)
	noSelfLoops(t, a)
}

func TestConstructors_RejectInvalidShapes(t *testing.T) {
	tests := []struct {
		name  string
		build func() (sim.Topology, error)
	}{
		{"empty complete", func() (sim.Topology, error) { return CompleteGraphOfSize(0) }},
		{"ring of one", func() (sim.Topology, error) { return RingOfSize(1, false) }},
		{"ring of duplicates", func() (sim.Topology, error) { return RingFrom(false, 4, 4) }},
		{"star without leaves", func() (sim.Topology, error) { return StarOf(1) }},
		{"star center is leaf", func() (sim.Topology, error) { return StarOf(1, 1, 2) }},
		{"self loop", func() (sim.Topology, error) {
			return ArbitraryFromPairs([][2]sim.Pid{{1, 1}}, false)
		}},
		{"empty arbitrary", func() (sim.Topology, error) { return ArbitraryFrom(nil, nil, false) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.True(t, errors.Is(err, sim.ErrTopology), "got %v", err)
		})
	}
}

func TestNeighborsOf_UnknownProcess(t *testing.T) {
	complete, _ := CompleteGraphOfSize(3)
	ring, _ := RingOfSize(3, false)
	star, _ := StarOfSize(3)
	arbitrary, _ := ArbitraryFromPairs([][2]sim.Pid{{1, 2}}, true)

	for _, topo := range []sim.Topology{complete, ring, star, arbitrary} {
		_, err := topo.NeighborsOf(42)
		assert.ErrorIs(t, err, sim.ErrUnknownProcess, topo.Kind())
		assert.ErrorIs(t, err, sim.ErrTopology, topo.Kind())
	}
}

func TestConfig_NewFromYAML(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantKind  string
		wantCount int
	}{
		{"complete", "kind: complete\nsize: 4\n", KindComplete, 4},
		{"ring", "kind: ring\nsize: 3\ndirected: true\n", KindRing, 3},
		{"star by size", "kind: star\nsize: 5\n", KindStar, 5},
		{"star by leaves", "kind: star\ncenter: 3\nleaves: [1, 2]\n", KindStar, 3},
		{"arbitrary", "kind: arbitrary\nedges: [[1, 2], [2, 3]]\nundirected: true\nprocesses: [8]\n", KindArbitrary, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			require.NoError(t, yaml.Unmarshal([]byte(tt.doc), &cfg))

			topo, err := New(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, topo.Kind())
			assert.Equal(t, tt.wantCount, topo.Processes().Len())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing kind", Config{}, true},
		{"unknown kind", Config{Kind: "torus", Size: 4}, true},
		{"ring without size", Config{Kind: KindRing}, true},
		{"star without leaves", Config{Kind: KindStar}, true},
		{"arbitrary without edges", Config{Kind: KindArbitrary}, true},
		{"valid ring", Config{Kind: KindRing, Size: 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, sim.ErrTopology)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_NewFailureReturnsNilTopology(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"star center is a leaf", Config{Kind: KindStar, Center: 2, Leaves: []int{2}}},
		{"star too small", Config{Kind: KindStar, Size: 1}},
		{"ring of one", Config{Kind: KindRing, Size: 1}},
		{"arbitrary self-loop", Config{Kind: KindArbitrary, Edges: [][2]int{{3, 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo, err := New(tt.cfg)

			assert.ErrorIs(t, err, sim.ErrTopology)
			// a typed nil pointer inside the interface would compare non-nil
			if topo != nil {
				t.Errorf("New returned %T alongside an error, want nil", topo)
			}
		})
	}
}
