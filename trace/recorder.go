// Package trace implements the results exporter spec.md's ambient
// stack calls for: a Recorder that subscribes to the engine's observer
// hooks and renders what it accumulated as a static plot
// (gonum.org/v1/plot, grounded in milosgajdos-go-estimate/sim/plot.go)
// or an interactive HTML dashboard (go-echarts, grounded in the
// teacher's mna/debug/charts.go). Neither render is on the engine's
// critical path.
package trace

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fly204/spicesim/history"
	"github.com/fly204/spicesim/integrate"
)

// Recorder accumulates accepted points plus reject/order history from
// an integrate.Engine's observer hooks.
type Recorder struct {
	labels []string

	times     []float64
	solutions [][]float64
	orders    []int

	rejected     int
	nonConverged int
}

// NewRecorder builds a Recorder. labels names each solution component
// (node voltages followed by branch currents) for plot legends; pass
// nil to fall back to numeric indices.
func NewRecorder(labels []string) *Recorder {
	return &Recorder{labels: labels}
}

// Attach subscribes the recorder to engine's AfterAccept, OnReject,
// and OnNonConvergence phases.
func (r *Recorder) Attach(engine *integrate.Engine) {
	engine.Subscribe(integrate.AfterAccept, r.onAfterAccept)
	engine.Subscribe(integrate.OnReject, r.onReject)
	engine.Subscribe(integrate.OnNonConvergence, r.onNonConvergence)
}

func (r *Recorder) onAfterAccept(_ integrate.Phase, state history.State) {
	r.times = append(r.times, state.Time)
	r.solutions = append(r.solutions, append([]float64(nil), state.Solution...))
	r.orders = append(r.orders, state.Order)
}

func (r *Recorder) onReject(integrate.Phase, history.State)       { r.rejected++ }
func (r *Recorder) onNonConvergence(integrate.Phase, history.State) { r.nonConverged++ }

// Rejected is the number of OnReject notifications seen so far.
func (r *Recorder) Rejected() int { return r.rejected }

// NonConverged is the number of OnNonConvergence notifications seen so far.
func (r *Recorder) NonConverged() int { return r.nonConverged }

func (r *Recorder) label(i int) string {
	if i < len(r.labels) {
		return r.labels[i]
	}
	return fmt.Sprintf("x[%d]", i)
}

// PlotPNG renders the named series' trajectories (by label, or every
// series if none are named) to a PNG at path.
func (r *Recorder) PlotPNG(path string, series ...string) error {
	if len(r.times) == 0 {
		return fmt.Errorf("trace: no accepted points recorded")
	}
	p := plot.New()
	p.Title.Text = "Transient Response"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "value"
	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	n := len(r.solutions[0])
	want := func(i int) bool {
		if len(series) == 0 {
			return true
		}
		for _, s := range series {
			if s == r.label(i) {
				return true
			}
		}
		return false
	}
	for i := 0; i < n; i++ {
		if !want(i) {
			continue
		}
		pts := make(plotter.XYs, len(r.times))
		for j, t := range r.times {
			pts[j].X = t
			pts[j].Y = r.solutions[j][i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		p.Add(line)
		p.Legend.Add(r.label(i), line)
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// WriteHTML renders an interactive dashboard to w: a line chart of
// every recorded solution component over the accepted times and a bar
// chart of the order at each accepted step, composed on one
// components.Page as in the teacher's dashboard. Rejected-step and
// non-convergence counts are not charted.
func (r *Recorder) WriteHTML(w io.Writer) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Node Trajectories", Subtitle: "accepted transient points"}),
		charts.WithLegendOpts(opts.Legend{Type: "scroll", Orient: "vertical", Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 20}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)
	xaxis := make([]string, len(r.times))
	for i, t := range r.times {
		xaxis[i] = fmt.Sprintf("%.6g", t)
	}
	line.SetXAxis(xaxis)

	if len(r.solutions) > 0 {
		n := len(r.solutions[0])
		for i := 0; i < n; i++ {
			data := make([]opts.LineData, len(r.times))
			for j := range r.times {
				data[j] = opts.LineData{Value: r.solutions[j][i]}
			}
			line.AddSeries(r.label(i), data)
		}
	}

	orderBar := charts.NewBar()
	orderBar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Integration Order", Subtitle: "order in effect at each accepted step"}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 20}),
	)
	orderBar.SetXAxis(xaxis)
	orderData := make([]opts.BarData, len(r.orders))
	for i, o := range r.orders {
		orderData[i] = opts.BarData{Value: o}
	}
	orderBar.AddSeries("order", orderData)

	page := components.NewPage()
	page.AddCharts(line, orderBar)
	return page.Render(w)
}
