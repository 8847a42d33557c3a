package trace

import "github.com/dasim/dasim/sim"

// Register Trace as the recorder used when sim.Settings.EnableTrace is set.
// This breaks the import cycle: sim/ cannot import sim/trace/.
func init() {
	sim.NewRecorderFunc = func(algorithmName string, info sim.SystemInfo) sim.Recorder {
		return New(algorithmName, info)
	}
}
