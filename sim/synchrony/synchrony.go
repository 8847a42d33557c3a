// Package synchrony implements the message-delay models of a simulated network.
//
// Every model is immutable after construction and draws from one injected
// *rand.Rand, so a seed fully determines its delay sequence. All models
// guarantee ArrivalTimeFor(t) >= t + MinDelay().
package synchrony

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dasim/dasim/sim"
)

// Model names used in Config and SynchronyInfo.
const (
	NameSynchronous           = "synchronous"
	NameAsynchronous          = "asynchronous"
	NamePartiallySynchronous  = "partially_synchronous"
	NameStochasticExponential = "stochastic_exponential"
)

// Defaults applied when a parameter is left out.
const (
	DefaultMinDelay  = time.Microsecond
	DefaultMaxDelay  = time.Millisecond
	DefaultBaseDelay = time.Second
	DefaultDeltaT    = time.Millisecond
)

func checkPositive(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s must be strictly positive, got %v", sim.ErrInvalidDelay, name, d)
	}
	return nil
}

func checkRand(rng *rand.Rand) error {
	if rng == nil {
		return fmt.Errorf("%w: synchrony model requires a random source", sim.ErrInvalidDelay)
	}
	return nil
}

// uniform draws from U(min, max).
func uniform(rng *rand.Rand, min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: rng}.Rand()
}

// exponential draws from Exp(rate).
func exponential(rng *rand.Rand, rate float64) float64 {
	return distuv.Exponential{Rate: rate, Src: rng}.Rand()
}

// === Synchronous ===

// SynchronousModel delivers every message within [min, max].
type SynchronousModel struct {
	min, max time.Duration
	rng      *rand.Rand
}

// NewSynchronous returns a model with delays uniform in [min, max].
func NewSynchronous(min, max time.Duration, rng *rand.Rand) (*SynchronousModel, error) {
	if err := checkPositive("min_delay", min); err != nil {
		return nil, err
	}
	if max < min {
		return nil, fmt.Errorf("%w: max_delay %v is below min_delay %v", sim.ErrInvalidDelay, max, min)
	}
	if err := checkRand(rng); err != nil {
		return nil, err
	}
	return &SynchronousModel{min: min, max: max, rng: rng}, nil
}

// Fixed returns a synchronous model where every message takes exactly d.
// No random draw is consumed when min == max.
func Fixed(d time.Duration, rng *rand.Rand) (*SynchronousModel, error) {
	return NewSynchronous(d, d, rng)
}

func (m *SynchronousModel) Type() sim.SynchronyType { return sim.Synchronous }
func (m *SynchronousModel) MinDelay() time.Duration { return m.min }
func (m *SynchronousModel) MaxDelay() time.Duration { return m.max }

func (m *SynchronousModel) ArrivalTimeFor(sentAt time.Duration) time.Duration {
	return synchronousArrival(m.rng, sentAt, m.min, m.max)
}

func (m *SynchronousModel) Describe() sim.SynchronyInfo {
	return sim.SynchronyInfo{
		Name:   NameSynchronous,
		Type:   sim.Synchronous,
		Delays: map[string]time.Duration{"min_delay": m.min, "max_delay": m.max},
	}
}

func synchronousArrival(rng *rand.Rand, sentAt, min, max time.Duration) time.Duration {
	at := sim.SaturatingAdd(sentAt, min)
	if max == min {
		return at
	}
	return sim.SaturatingAdd(at, sim.Scale(max-min, uniform(rng, 0, 1)))
}

// === Asynchronous ===

// AsynchronousModel has finite but unbounded delays:
// min + base*(Exp(2) + U(0,1)).
type AsynchronousModel struct {
	min, base time.Duration
	rng       *rand.Rand
}

// NewAsynchronous requires base >= min > 0.
func NewAsynchronous(min, base time.Duration, rng *rand.Rand) (*AsynchronousModel, error) {
	if err := checkPositive("min_delay", min); err != nil {
		return nil, err
	}
	if base < min {
		return nil, fmt.Errorf("%w: base_delay %v is below min_delay %v", sim.ErrInvalidDelay, base, min)
	}
	if err := checkRand(rng); err != nil {
		return nil, err
	}
	return &AsynchronousModel{min: min, base: base, rng: rng}, nil
}

func (m *AsynchronousModel) Type() sim.SynchronyType { return sim.Asynchronous }
func (m *AsynchronousModel) MinDelay() time.Duration { return m.min }

func (m *AsynchronousModel) ArrivalTimeFor(sentAt time.Duration) time.Duration {
	factor := exponential(m.rng, 2) + uniform(m.rng, 0, 1)
	return sim.SaturatingAdd(sim.SaturatingAdd(sentAt, m.min), sim.Scale(m.base, factor))
}

func (m *AsynchronousModel) Describe() sim.SynchronyInfo {
	return sim.SynchronyInfo{
		Name:   NameAsynchronous,
		Type:   sim.Asynchronous,
		Delays: map[string]time.Duration{"min_delay": m.min, "base_delay": m.base},
	}
}

// === StochasticExponential ===

// StochasticExponentialModel delays every message by min + deltaT*Exp(1).
type StochasticExponentialModel struct {
	min, deltaT time.Duration
	rng         *rand.Rand
}

// NewStochasticExponential requires min > 0 and deltaT > 0.
func NewStochasticExponential(min, deltaT time.Duration, rng *rand.Rand) (*StochasticExponentialModel, error) {
	if err := checkPositive("min_delay", min); err != nil {
		return nil, err
	}
	if err := checkPositive("delta_t", deltaT); err != nil {
		return nil, err
	}
	if err := checkRand(rng); err != nil {
		return nil, err
	}
	return &StochasticExponentialModel{min: min, deltaT: deltaT, rng: rng}, nil
}

// Type reports partial synchrony: delays are unbounded but concentrated.
func (m *StochasticExponentialModel) Type() sim.SynchronyType { return sim.PartiallySynchronous }
func (m *StochasticExponentialModel) MinDelay() time.Duration { return m.min }

func (m *StochasticExponentialModel) ArrivalTimeFor(sentAt time.Duration) time.Duration {
	return sim.SaturatingAdd(sim.SaturatingAdd(sentAt, m.min), sim.Scale(m.deltaT, exponential(m.rng, 1)))
}

func (m *StochasticExponentialModel) Describe() sim.SynchronyInfo {
	return sim.SynchronyInfo{
		Name:   NameStochasticExponential,
		Type:   sim.PartiallySynchronous,
		Delays: map[string]time.Duration{"min_delay": m.min, "delta_t": m.deltaT},
	}
}
