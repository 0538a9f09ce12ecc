package newton

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/mna"
)

// linearConductance stamps a fixed 1Ω conductance between two nodes
// plus a constant current source, independent of the current iterate
// — a Newton loop over a purely linear stamp still takes one extra
// iteration to confirm the fixed point, since convergence is judged by
// comparing successive solves, not by residual alone.
type linearConductance struct {
	n1, n2 mna.NodeID
	i      float64
}

func (l *linearConductance) Name() string           { return "R" }
func (l *linearConductance) Setup(*device.Context) error { return nil }
func (l *linearConductance) Unsetup()                {}
func (l *linearConductance) Load(state integrate.LoadState) error {
	state.Stamp.StampConductance(l.n1, l.n2, 1.0)
	state.Stamp.StampCurrentSource(l.n1, l.n2, l.i)
	return nil
}

// emptyDevice never stamps anything, leaving A the zero matrix.
type emptyDevice struct{}

func (emptyDevice) Name() string                     { return "empty" }
func (emptyDevice) Setup(*device.Context) error      { return nil }
func (emptyDevice) Unsetup()                         {}
func (emptyDevice) Load(integrate.LoadState) error   { return nil }

func newLoadState(eq *mna.Equations) integrate.LoadState {
	return integrate.LoadState{
		Time:         0,
		Delta:        1,
		Order:        1,
		Coefficients: integrate.Coefficients{A: []float64{1, -1}},
		Stamp:        mna.NewStamp(eq),
	}
}

func TestSolveConvergesOnALinearStamp(t *testing.T) {
	eq := mna.NewEquations(1, 0)
	c := New(Config{MaxIter: 10, RelTol: 1e-6, AbsTol: 1e-9}, eq)
	devices := []device.Device{&linearConductance{n1: 0, n2: mna.Gnd, i: 0.5}}

	outcome, iter, residual, err := c.Solve(context.Background(), newLoadState(eq), devices)
	require.NoError(t, err)
	require.Equal(t, Converged, outcome)
	require.LessOrEqual(t, iter, 10)
	require.InDelta(t, 0.0, residual, 1e-9)
}

func TestSolveDivergesWhenMaxIterIsTooLow(t *testing.T) {
	eq := mna.NewEquations(1, 0)
	c := New(Config{MaxIter: 1, RelTol: 0, AbsTol: 0}, eq)
	devices := []device.Device{&linearConductance{n1: 0, n2: mna.Gnd, i: 0.5}}

	outcome, iter, _, err := c.Solve(context.Background(), newLoadState(eq), devices)
	require.NoError(t, err)
	require.Equal(t, Diverged, outcome)
	require.Equal(t, 1, iter)
}

func TestSolveReportsSingularOnAZeroMatrix(t *testing.T) {
	eq := mna.NewEquations(2, 0)
	c := New(Config{MaxIter: 5, RelTol: 1e-6, AbsTol: 1e-9}, eq)
	devices := []device.Device{emptyDevice{}}

	outcome, _, _, err := c.Solve(context.Background(), newLoadState(eq), devices)
	require.Error(t, err)
	require.Equal(t, Singular, outcome)
}

func TestSolveStopsEarlyOnCancelledContext(t *testing.T) {
	eq := mna.NewEquations(2, 0)
	c := New(Config{MaxIter: 100, RelTol: 1e-12, AbsTol: 1e-12}, eq)
	devices := []device.Device{&linearConductance{n1: 0, n2: 1, i: 0.5}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, iter, _, err := c.Solve(ctx, newLoadState(eq), devices)
	require.NoError(t, err)
	require.Equal(t, Diverged, outcome)
	require.Equal(t, 1, iter)
}

func TestNewDefaultsMaxIterTo100(t *testing.T) {
	eq := mna.NewEquations(1, 0)
	c := New(Config{}, eq)
	require.Equal(t, 100, c.cfg.MaxIter)
}
