package sim

import "github.com/sirupsen/logrus"

// Settings controls optional behaviour of a simulation run.
type Settings struct {
	IsVerbose   bool `yaml:"verbose"`
	IsDebug     bool `yaml:"debug"`
	EnableTrace bool `yaml:"trace"`
}

// LogLevel returns the logrus level implied by the verbosity flags, or
// fallback when neither flag is set.
func (s Settings) LogLevel(fallback logrus.Level) logrus.Level {
	switch {
	case s.IsDebug:
		return logrus.DebugLevel
	case s.IsVerbose:
		return logrus.InfoLevel
	default:
		return fallback
	}
}
