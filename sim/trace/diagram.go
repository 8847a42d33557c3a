package trace

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// RenderSpaceTime draws the space-time diagram of tr to path (format from
// the extension, e.g. .png or .svg). Time runs along the X axis in seconds,
// processes along the Y axis; each delivered message is a line from its
// sender at send time to its receiver at arrival time, colored by sender,
// and each signal is a point at its target. Lost messages are not drawn.
func RenderSpaceTime(tr *Trace, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Space-time diagram: %s", tr.AlgorithmName)
	p.X.Label.Text = "simulated time (s)"
	p.Y.Label.Text = "process"

	pids := tr.System.Processes().Slice()
	ticks := make([]plot.Tick, len(pids))
	for i, pid := range pids {
		ticks[i] = plot.Tick{Value: float64(pid), Label: pid.String()}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	horizon := time.Duration(0)
	for _, e := range tr.Events {
		if !e.IsLost() && e.ArrivesAt > horizon {
			horizon = e.ArrivesAt
		}
	}

	// process lines
	for _, pid := range pids {
		axis, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: float64(pid)},
			{X: horizon.Seconds(), Y: float64(pid)},
		})
		if err != nil {
			return err
		}
		axis.Color = plotutil.Color(0)
		axis.Dashes = plotutil.Dashes(1)
		p.Add(axis)
	}

	signals := make(plotter.XYs, 0)
	for _, e := range tr.Events {
		if e.IsLost() {
			continue
		}
		sender, isMsg := e.Sender()
		if !isMsg {
			signals = append(signals, plotter.XY{X: e.ArrivesAt.Seconds(), Y: float64(e.Receiver())})
			continue
		}
		line, err := plotter.NewLine(plotter.XYs{
			{X: e.SentAt.Seconds(), Y: float64(sender)},
			{X: e.ArrivesAt.Seconds(), Y: float64(e.Receiver())},
		})
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(int(sender))
		p.Add(line)
	}

	if len(signals) > 0 {
		scatter, err := plotter.NewScatter(signals)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("signal", scatter)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("trace: saving diagram %s: %w", path, err)
	}
	return nil
}
