package trace

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dasim/dasim/sim"
)

// Summary aggregates statistics from a Trace.
type Summary struct {
	Algorithm     string
	Steps         int
	Duration      time.Duration // last step time minus first step time
	TotalEvents   int
	Signals       int
	Messages      int
	LostMessages  int           // messages scheduled at sim.Unreachable
	MeanLatency   time.Duration // over delivered messages only
	StdDevLatency time.Duration
	MedianLatency time.Duration
	MaxLatency    time.Duration
	// ReceivedBy counts messages per receiving process.
	ReceivedBy map[sim.Pid]int
	// SentBy counts messages per sending process.
	SentBy map[sim.Pid]int
}

// Summarize computes aggregate statistics from a Trace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(tr *Trace) *Summary {
	summary := &Summary{
		ReceivedBy: make(map[sim.Pid]int),
		SentBy:     make(map[sim.Pid]int),
	}
	if tr == nil {
		return summary
	}

	summary.Algorithm = tr.AlgorithmName
	summary.Steps = len(tr.History)
	if len(tr.History) > 0 {
		summary.Duration = tr.History[len(tr.History)-1].At - tr.History[0].At
	}
	summary.TotalEvents = len(tr.Events)

	latencies := make([]float64, 0, len(tr.Events))
	for _, e := range tr.Events {
		if !e.IsMessage() {
			summary.Signals++
			continue
		}
		summary.Messages++
		sender, _ := e.Sender()
		summary.SentBy[sender]++
		summary.ReceivedBy[e.Receiver()]++
		if e.IsLost() {
			summary.LostMessages++
			continue
		}
		latencies = append(latencies, float64(e.Latency()))
	}

	if len(latencies) > 0 {
		mean, std := stat.MeanStdDev(latencies, nil)
		summary.MeanLatency = time.Duration(mean)
		if len(latencies) > 1 {
			summary.StdDevLatency = time.Duration(std)
		}
		summary.MaxLatency = time.Duration(floats.Max(latencies))
		slices.Sort(latencies)
		summary.MedianLatency = time.Duration(stat.Quantile(0.5, stat.Empirical, latencies, nil))
	}
	return summary
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Trace Summary (%s) ===\n", s.Algorithm)
	fmt.Fprintf(&b, "Steps          : %d over %v\n", s.Steps, s.Duration)
	fmt.Fprintf(&b, "Events         : %d (%d signals, %d messages, %d lost)\n", s.TotalEvents, s.Signals, s.Messages, s.LostMessages)
	fmt.Fprintf(&b, "Latency        : mean=%v std=%v median=%v max=%v\n", s.MeanLatency, s.StdDevLatency, s.MedianLatency, s.MaxLatency)
	pids := make([]sim.Pid, 0, len(s.ReceivedBy)+len(s.SentBy))
	for pid := range s.ReceivedBy {
		pids = append(pids, pid)
	}
	for pid := range s.SentBy {
		pids = append(pids, pid)
	}
	for _, pid := range sim.NewProcessSet(pids...).Slice() {
		fmt.Fprintf(&b, "  %-4s received %d, sent %d\n", pid, s.ReceivedBy[pid], s.SentBy[pid])
	}
	return b.String()
}
