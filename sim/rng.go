package sim

import (
	"fmt"
	"hash/fnv"

	"golang.org/x/exp/rand"
)

// === SimulationKey ===

// SimulationKey identifies a reproducible simulation run.
// Two runs with the same SimulationKey, topology, algorithm, synchrony model
// and externally scheduled events produce bit-for-bit identical traces.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemNetwork is the RNG subsystem drawn by synchrony models.
	// Uses the master seed directly so --seed maps onto delays one to one.
	SubsystemNetwork = "network"

	// SubsystemAlgorithm is reserved for randomized algorithms.
	SubsystemAlgorithm = "algorithm"
)

// SubsystemProcess returns the subsystem name for a per-process stream.
func SubsystemProcess(pid Pid) string {
	return fmt.Sprintf("process_%d", int(pid))
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
// It replaces process-wide randomness: every random draw of a run comes from
// a stream handed out here.
//
// Derivation formula:
//   - For SubsystemNetwork: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Each simulator owns its own PartitionedRNG.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	derivedSeed := uint64(p.key)
	if name != SubsystemNetwork {
		derivedSeed ^= fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
