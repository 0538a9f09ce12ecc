// Package basic implements the concrete device library spec.md §9
// calls out as the engine's external collaborators: linear elements
// (resistor, capacitor, inductor), independent sources with several
// waveforms, and a nonlinear diode. Every device here is grounded in
// the teacher's element/base/*.go companion models, generalized onto
// the uniform TruncatableState.Integrate(coefficients) contract
// spec.md §3/§4.2 specifies instead of each element hand-rolling its
// own G_eq/I_hist bookkeeping per integration method.
package basic

import (
	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/internal/sparse"
	"github.com/fly204/spicesim/mna"
)

// Resistor is a linear two-terminal conductance. Grounded in
// element/base/Resistor.go's Stamp (StampImpedance), rewritten against
// cached element handles per spec.md §4.4's "handles obtained earlier"
// discipline instead of a fresh lookup each stamp.
type Resistor struct {
	name   string
	n1, n2 mna.NodeID
	g      float64

	ee, ff, ef, fe *sparse.Element
}

// NewResistor builds a resistor of the given resistance in ohms
// between n1 and n2.
func NewResistor(name string, n1, n2 mna.NodeID, ohms float64) *Resistor {
	return &Resistor{name: name, n1: n1, n2: n2, g: 1 / ohms}
}

func (r *Resistor) Name() string { return r.name }

func (r *Resistor) Setup(ctx *device.Context) error {
	r.ee = ctx.Bind.Element(r.n1, r.n1)
	r.ff = ctx.Bind.Element(r.n2, r.n2)
	r.ef = ctx.Bind.Element(r.n1, r.n2)
	r.fe = ctx.Bind.Element(r.n2, r.n1)
	return nil
}

func (r *Resistor) Load(state integrate.LoadState) error {
	r.ee.Add(r.g)
	r.ff.Add(r.g)
	r.ef.Add(-r.g)
	r.fe.Add(-r.g)
	return nil
}

func (r *Resistor) Unsetup() {}
