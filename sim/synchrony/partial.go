package synchrony

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/dasim/dasim/sim"
)

// branch is one mode of the pre-GST delay mixture.
type branch int

const (
	branchShort branch = iota
	branchLong
	branchNearLost
	branchLost
	branchLucky
)

var branchNames = [...]string{"short", "long", "near-lost", "lost", "lucky"}

func (b branch) String() string { return branchNames[b] }

// branchWeights is indexed by branch.
var branchWeights = []float64{1, 4, 2, 2, 1}

// lostHorizon is where a lost message lands unless gst is later.
// 999999 days overflows time.Duration, so it saturates to sim.Unreachable.
var lostHorizon = sim.Scale(24*time.Hour, 999_999)

// PartiallySynchronousModel behaves erratically before the global
// stabilization time and exactly like SynchronousModel from gst on.
type PartiallySynchronousModel struct {
	min, max, gst time.Duration
	rng           *rand.Rand
}

// NewPartiallySynchronous requires max >= min > 0 and gst > 0.
func NewPartiallySynchronous(min, max, gst time.Duration, rng *rand.Rand) (*PartiallySynchronousModel, error) {
	if _, err := NewSynchronous(min, max, rng); err != nil {
		return nil, err
	}
	if err := checkPositive("gst", gst); err != nil {
		return nil, err
	}
	return &PartiallySynchronousModel{min: min, max: max, gst: gst, rng: rng}, nil
}

func (m *PartiallySynchronousModel) Type() sim.SynchronyType { return sim.PartiallySynchronous }
func (m *PartiallySynchronousModel) MinDelay() time.Duration { return m.min }

// GST returns the global stabilization time.
func (m *PartiallySynchronousModel) GST() time.Duration { return m.gst }

func (m *PartiallySynchronousModel) ArrivalTimeFor(sentAt time.Duration) time.Duration {
	if sentAt >= m.gst {
		return synchronousArrival(m.rng, sentAt, m.min, m.max)
	}
	return m.arrivalOn(m.pick(), sentAt)
}

// pick draws a branch according to branchWeights. A Weighted sampler removes
// what it takes, so a fresh one is built per draw.
func (m *PartiallySynchronousModel) pick() branch {
	i, ok := sampleuv.NewWeighted(branchWeights, m.rng).Take()
	if !ok {
		return branchLucky
	}
	return branch(i)
}

// arrivalOn computes the arrival time for a message sent before gst on the
// given branch, clamped to sentAt + min.
func (m *PartiallySynchronousModel) arrivalOn(b branch, sentAt time.Duration) time.Duration {
	var at time.Duration
	switch b {
	case branchShort:
		at = sim.SaturatingAdd(sentAt, sim.Scale(m.max, uniform(m.rng, 0, 2)))
	case branchLong:
		factor := 1 + uniform(m.rng, 0, 1) + exponential(m.rng, 1.0/10)
		at = sim.SaturatingAdd(sentAt, sim.Scale(m.max, factor))
	case branchNearLost:
		factor := 1e6 + exponential(m.rng, 1.0/1e6)
		at = sim.SaturatingAdd(m.gst, sim.Scale(m.max, factor))
	case branchLost:
		at = max(m.gst, lostHorizon)
	default:
		at = synchronousArrival(m.rng, sentAt, m.min, m.max)
	}
	return max(at, sim.SaturatingAdd(sentAt, m.min))
}

func (m *PartiallySynchronousModel) Describe() sim.SynchronyInfo {
	return sim.SynchronyInfo{
		Name: NamePartiallySynchronous,
		Type: sim.PartiallySynchronous,
		Delays: map[string]time.Duration{
			"min_delay": m.min,
			"max_delay": m.max,
			"gst":       m.gst,
		},
	}
}

func (m *PartiallySynchronousModel) String() string {
	return fmt.Sprintf("PartiallySynchronous(min=%v, max=%v, gst=%v)", m.min, m.max, m.gst)
}
