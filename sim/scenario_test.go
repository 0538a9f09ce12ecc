package sim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/device/basic"
	"github.com/fly204/spicesim/history"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/mna"
)

// TestRunTransientLandsExactlyOnARegisteredBreakpoint drives a
// sine-sourced RC filter alongside a zero-effect current source whose
// only purpose is registering a breakpoint — the same mechanism a real
// waveform edge uses (Setup calling ctx.Breakpoint for each of
// Waveform.Breakpoints()) — and checks the engine lands on it exactly
// rather than stepping past it, per Continue's snap-to-breakpoint rule.
func TestRunTransientLandsExactlyOnARegisteredBreakpoint(t *testing.T) {
	const (
		supply mna.NodeID    = 0
		out    mna.NodeID    = 1
		vbr    mna.VoltageID = 0
	)
	bpTime := 3e-3
	v1 := basic.NewVSource("V1", supply, mna.Gnd, vbr, basic.Sine{Offset: 2.5, Amplitude: 2.5, Freq: 1000})
	r1 := basic.NewResistor("R1", supply, out, 1_000)
	c1 := basic.NewCapacitor("C1", out, mna.Gnd, 1e-6, 0)
	bp := basic.NewISource("Ibp", supply, mna.Gnd, basic.Step{Before: 0, After: 0, At: bpTime})
	devices := []device.Device{v1, r1, c1, bp}
	circuit := NewCircuit(devices, 2, 1)

	tc := TimeConfiguration{InitTime: 0, FinalTime: 6e-3}
	require.NoError(t, circuit.Setup(tc, SpiceConfiguration{}, integrate.NewGear(0)))
	defer circuit.Unsetup()

	var times []float64
	err := circuit.RunTransient(context.Background(), func(r Result) { times = append(times, r.Time) })
	require.NoError(t, err)

	landed := false
	for _, tm := range times {
		if math.Abs(tm-bpTime) < 1e-12 {
			landed = true
			break
		}
	}
	require.True(t, landed, "no accepted point landed exactly on the registered breakpoint")
}

// TestRunTransientResetsOrderExactlyAtAPulseEdge checks that a step
// lands on a pulse edge and that the accepted step starting from that
// edge runs at order 1: Continue's order-to-1 reset fires when the last
// accepted time sits on a breakpoint.
func TestRunTransientResetsOrderExactlyAtAPulseEdge(t *testing.T) {
	const (
		supply mna.NodeID    = 0
		out    mna.NodeID    = 1
		vbr    mna.VoltageID = 0
	)
	edge := 1e-3
	v1 := basic.NewVSource("V1", supply, mna.Gnd, vbr, basic.Pulse{Low: 0, High: 5, Delay: edge, Width: 2e-3})
	r1 := basic.NewResistor("R1", supply, out, 1_000)
	c1 := basic.NewCapacitor("C1", out, mna.Gnd, 1e-6, 0)
	devices := []device.Device{v1, r1, c1}
	circuit := NewCircuit(devices, 2, 1)

	tc := TimeConfiguration{InitTime: 0, FinalTime: 4e-3}
	require.NoError(t, circuit.Setup(tc, SpiceConfiguration{}, integrate.NewGear(0)))
	defer circuit.Unsetup()

	landedOnEdge := false
	orderAfterEdge := 0
	circuit.Subscribe(integrate.AfterAccept, func(_ integrate.Phase, state history.State) {
		switch {
		case orderAfterEdge != 0:
		case landedOnEdge:
			orderAfterEdge = state.Order
		case math.Abs(state.Time-edge) < 1e-9:
			landedOnEdge = true
		}
	})

	err := circuit.RunTransient(context.Background(), func(Result) {})
	require.NoError(t, err)
	require.True(t, landedOnEdge)
	require.Equal(t, 1, orderAfterEdge)
}

// TestDiodeCircuitRaisesOrderAboveOneAwayFromBreakpoints drives a
// diode-clamped RC charge with no edges after t=0 and checks the Gear
// engine eventually raises its order once the solution is smooth
// enough that a higher-order divided difference still falls inside
// tolerance — Evaluate's orderRaiseGain comparison.
func TestDiodeCircuitRaisesOrderAboveOneAwayFromBreakpoints(t *testing.T) {
	const (
		supply mna.NodeID    = 0
		anode  mna.NodeID    = 1
		vbr    mna.VoltageID = 0
	)
	v1 := basic.NewVSource("V1", supply, mna.Gnd, vbr, basic.DC{Value0: 5})
	r1 := basic.NewResistor("R1", supply, anode, 1_000)
	c1 := basic.NewCapacitor("C1", anode, mna.Gnd, 1e-6, 0)
	d1 := basic.NewDiode("D1", anode, mna.Gnd, 1e-14, 1.0)
	devices := []device.Device{v1, r1, c1, d1}
	circuit := NewCircuit(devices, 2, 1)

	tc := TimeConfiguration{InitTime: 0, FinalTime: 1e-3}
	require.NoError(t, circuit.Setup(tc, SpiceConfiguration{}, integrate.NewGear(0)))
	defer circuit.Unsetup()

	maxOrderSeen := 0
	circuit.Subscribe(integrate.AfterAccept, func(_ integrate.Phase, state history.State) {
		if state.Order > maxOrderSeen {
			maxOrderSeen = state.Order
		}
	})

	err := circuit.RunTransient(context.Background(), func(Result) {})
	require.NoError(t, err)
	require.Greater(t, maxOrderSeen, 1)
}

// TestRunTransientLCOscillatorOscillatesAboutZero drives a lossless
// parallel LC tank seeded with an initial capacitor voltage and checks
// the accepted trajectory actually swings through both polarities
// while staying bounded, rather than decaying to zero or blowing up —
// the two failure modes a numerically unstable or over-damped
// integrator would show on a stiff, energy-conserving circuit.
func TestRunTransientLCOscillatorOscillatesAboutZero(t *testing.T) {
	const (
		node mna.NodeID    = 0
		lbr  mna.VoltageID = 0
	)
	const henries, farads = 1e-3, 1e-6
	c1 := basic.NewCapacitor("C1", node, mna.Gnd, farads, 5.0)
	l1 := basic.NewInductor("L1", node, mna.Gnd, lbr, henries, 0)
	devices := []device.Device{c1, l1}
	circuit := NewCircuit(devices, 1, 1)

	period := 2 * math.Pi * math.Sqrt(henries*farads)
	tc := TimeConfiguration{InitTime: 0, FinalTime: 2 * period}
	require.NoError(t, circuit.Setup(tc, SpiceConfiguration{}, integrate.NewGear(0)))
	defer circuit.Unsetup()

	var points []Result
	err := circuit.RunTransient(context.Background(), func(r Result) { points = append(points, r) })
	require.NoError(t, err)
	require.NotEmpty(t, points)

	sawPositive, sawNegative := false, false
	for _, p := range points {
		v := p.Solution[node]
		require.Less(t, math.Abs(v), 10.0)
		if v > 0.5 {
			sawPositive = true
		}
		if v < -0.5 {
			sawNegative = true
		}
	}
	require.True(t, sawPositive, "never swung positive")
	require.True(t, sawNegative, "never swung negative")
}

// stiffDevice is a test-only fixture (in the style of
// newton/controller_test.go's linearConductance) whose stamp toggles
// between two current sources every Newton iteration until the engine
// has shrunk its step at or below threshold, then latches onto a
// stable stamp permanently. Above threshold it can never converge —
// the toggling means no two successive iterates ever match — which
// deterministically forces at least one non-convergence/step-shrink
// cycle through RunTransient without depending on a real nonlinear
// device's exact iteration count.
type stiffDevice struct {
	node      mna.NodeID
	threshold float64
	recovered bool
	toggle    bool
}

func (d *stiffDevice) Name() string                { return "stiff" }
func (d *stiffDevice) Setup(*device.Context) error { return nil }
func (d *stiffDevice) Unsetup()                    {}

func (d *stiffDevice) Load(state integrate.LoadState) error {
	if !d.recovered && state.Delta <= d.threshold {
		d.recovered = true
	}
	if d.recovered {
		state.Stamp.StampConductance(d.node, mna.Gnd, 1.0)
		state.Stamp.StampCurrentSource(d.node, mna.Gnd, 1.0)
		return nil
	}
	d.toggle = !d.toggle
	v := 1.0
	if d.toggle {
		v = -1.0
	}
	state.Stamp.StampConductance(d.node, mna.Gnd, 1.0)
	state.Stamp.StampCurrentSource(d.node, mna.Gnd, v)
	return nil
}

func TestRunTransientRecoversFromNonConvergenceByShrinkingTheStep(t *testing.T) {
	const finalTime = 1e-6
	d := &stiffDevice{node: 0, threshold: 1e-10}
	circuit := NewCircuit([]device.Device{d}, 1, 0)

	tc := TimeConfiguration{InitTime: 0, FinalTime: finalTime, Step: 1e-7, MaxStep: 1e-3, MinStep: 1e-18}
	require.NoError(t, circuit.Setup(tc, SpiceConfiguration{}, integrate.NewGear(0)))
	defer circuit.Unsetup()

	nonConvergenceCount := 0
	circuit.Subscribe(integrate.OnNonConvergence, func(integrate.Phase, history.State) { nonConvergenceCount++ })

	err := circuit.RunTransient(context.Background(), func(Result) {})
	require.NoError(t, err)
	require.Greater(t, nonConvergenceCount, 0, "expected at least one non-convergence before the step shrank enough to recover")
	require.True(t, d.recovered)
}
