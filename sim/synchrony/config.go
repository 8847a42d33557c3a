package synchrony

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"github.com/dasim/dasim/sim"
)

// Config is the YAML description of a synchrony model. Durations use Go
// syntax ("1s", "250ms"); omitted durations take the Default* values.
type Config struct {
	Model     string `yaml:"model"`
	MinDelay  string `yaml:"min_delay,omitempty"`
	MaxDelay  string `yaml:"max_delay,omitempty"`
	BaseDelay string `yaml:"base_delay,omitempty"`
	GST       string `yaml:"gst,omitempty"`
	DeltaT    string `yaml:"delta_t,omitempty"`
}

// params is Config with every duration parsed.
type params struct {
	min, max, base, gst, deltaT time.Duration
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: synchrony.%s: %v", sim.ErrInvalidDelay, field, err)
	}
	return d, nil
}

func (c Config) parse() (params, error) {
	var p params
	var err error
	if p.min, err = parseDuration("min_delay", c.MinDelay, DefaultMinDelay); err != nil {
		return p, err
	}
	if p.max, err = parseDuration("max_delay", c.MaxDelay, max(DefaultMaxDelay, p.min)); err != nil {
		return p, err
	}
	if p.base, err = parseDuration("base_delay", c.BaseDelay, max(DefaultBaseDelay, p.min)); err != nil {
		return p, err
	}
	if p.gst, err = parseDuration("gst", c.GST, 0); err != nil {
		return p, err
	}
	if p.deltaT, err = parseDuration("delta_t", c.DeltaT, DefaultDeltaT); err != nil {
		return p, err
	}
	return p, nil
}

// Validate checks the model name and parses every duration. Range checks
// happen in the constructors so that New and Validate agree.
func (c Config) Validate() error {
	switch c.Model {
	case NameSynchronous, NameAsynchronous, NamePartiallySynchronous, NameStochasticExponential:
	case "":
		return fmt.Errorf("%w: synchrony.model is required", sim.ErrInvalidDelay)
	default:
		return fmt.Errorf("%w: unknown synchrony.model %q", sim.ErrInvalidDelay, c.Model)
	}
	if c.Model == NamePartiallySynchronous && c.GST == "" {
		return fmt.Errorf("%w: synchrony.gst is required for %s", sim.ErrInvalidDelay, c.Model)
	}
	_, err := c.parse()
	return err
}

// New builds the model described by c, drawing from rng.
func New(c Config, rng *rand.Rand) (sim.SynchronyModel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p, err := c.parse()
	if err != nil {
		return nil, err
	}
	switch c.Model {
	case NameSynchronous:
		return NewSynchronous(p.min, p.max, rng)
	case NameAsynchronous:
		return NewAsynchronous(p.min, p.base, rng)
	case NamePartiallySynchronous:
		return NewPartiallySynchronous(p.min, p.max, p.gst, rng)
	default:
		return NewStochasticExponential(p.min, p.deltaT, rng)
	}
}
