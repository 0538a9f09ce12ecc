package basic

import (
	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/internal/sparse"
	"github.com/fly204/spicesim/mna"
)

// Capacitor is a linear two-terminal capacitance between n1 and n2,
// with optional nonzero initial voltage. The tracked TruncatableState
// is the voltage across the device — the node-observable quantity —
// so the companion model stamps as a pure admittance, the way
// element/base/Capacitor.go's G_eq/I_hist pair does, but driven by
// whatever integration method and order is active instead of a fixed
// trapezoidal 2C/δ.
type Capacitor struct {
	name       string
	n1, n2     mna.NodeID
	farads     float64
	initVolts  float64

	voltage device.Derivative

	ee, ff, ef, fe *sparse.Element
}

// NewCapacitor builds a capacitor of the given capacitance in farads
// between n1 and n2, with the stated initial voltage (n1 relative to
// n2) at t=0.
func NewCapacitor(name string, n1, n2 mna.NodeID, farads, initVolts float64) *Capacitor {
	return &Capacitor{name: name, n1: n1, n2: n2, farads: farads, initVolts: initVolts}
}

func (c *Capacitor) Name() string { return c.name }

func (c *Capacitor) Setup(ctx *device.Context) error {
	c.ee = ctx.Bind.Element(c.n1, c.n1)
	c.ff = ctx.Bind.Element(c.n2, c.n2)
	c.ef = ctx.Bind.Element(c.n1, c.n2)
	c.fe = ctx.Bind.Element(c.n2, c.n1)
	c.voltage = ctx.CreateState(true)
	c.voltage.SetValue(c.initVolts)
	return nil
}

func (c *Capacitor) Load(state integrate.LoadState) error {
	v := state.Stamp.NodeVoltage(c.n1) - state.Stamp.NodeVoltage(c.n2)
	c.voltage.SetValue(v)
	gEq, iEq := c.voltage.Integrate(state.Coefficients.A, state.Coefficients.PriorDerivWeight, state.Delta)

	g := c.farads * gEq
	i := c.farads * iEq

	c.ee.Add(g)
	c.ff.Add(g)
	c.ef.Add(-g)
	c.fe.Add(-g)
	state.Stamp.StampCurrentSource(c.n1, c.n2, i)
	return nil
}

func (c *Capacitor) Unsetup() {}
