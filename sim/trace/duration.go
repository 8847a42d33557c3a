package trace

import "time"

const day = 24 * time.Hour

// Duration is the portable encoding of a simulated instant in a YAML trace:
// explicit integer components so no reader has to parse Go duration syntax.
type Duration struct {
	Days    int64 `yaml:"days"`
	Seconds int64 `yaml:"seconds"`
	Nanos   int64 `yaml:"nanos"`
}

// FromDuration splits d into days, seconds and nanoseconds.
func FromDuration(d time.Duration) Duration {
	return Duration{
		Days:    int64(d / day),
		Seconds: int64((d % day) / time.Second),
		Nanos:   int64(d % time.Second),
	}
}

// AsDuration reassembles the components.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d.Days)*day + time.Duration(d.Seconds)*time.Second + time.Duration(d.Nanos)
}
