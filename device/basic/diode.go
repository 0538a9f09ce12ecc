package basic

import (
	"math"

	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/internal/sparse"
	"github.com/fly204/spicesim/mna"
)

// Diode is a nonlinear two-terminal junction: the Shockley equation
// linearized each Newton iteration, with voltage-step limiting and a
// parallel gmin conductance to keep the matrix nonsingular near
// turn-on — the core of element/base/Diode.go's doDiodeStep/
// limitDiodeStep, trimmed of its Zener-breakdown branch (not named by
// the spec's diode scenario) and series resistance.
type Diode struct {
	name   string
	anode  mna.NodeID
	cath   mna.NodeID

	saturationCurrent float64 // Is, amperes
	emission          float64 // N
	thermalVoltage    float64 // Vt = kT/q, volts

	vcrit    float64 // voltage above which step-limiting kicks in
	lastDiff float64 // previous iteration's anode-cathode voltage

	ee, ff, ef, fe *sparse.Element
}

const (
	defaultThermalVoltage = 0.025865 // 27°C
	diodeGminFactor       = 0.01
	diodeGminFloor        = 1e-12
)

// NewDiode builds a diode with the given saturation current (amperes)
// and emission coefficient between anode and cathode.
func NewDiode(name string, anode, cathode mna.NodeID, saturationCurrent, emission float64) *Diode {
	return &Diode{
		name:              name,
		anode:             anode,
		cath:              cathode,
		saturationCurrent: saturationCurrent,
		emission:          emission,
		thermalVoltage:    defaultThermalVoltage,
	}
}

func (d *Diode) Name() string { return d.name }

func (d *Diode) Setup(ctx *device.Context) error {
	d.ee = ctx.Bind.Element(d.anode, d.anode)
	d.ff = ctx.Bind.Element(d.cath, d.cath)
	d.ef = ctx.Bind.Element(d.anode, d.cath)
	d.fe = ctx.Bind.Element(d.cath, d.anode)

	vscale := d.emission * d.thermalVoltage
	if vscale > 0 && d.saturationCurrent > 0 {
		d.vcrit = vscale * math.Log(vscale/(math.Sqrt2*d.saturationCurrent))
	} else {
		d.vcrit = 0.7
	}
	return nil
}

func (d *Diode) Load(state integrate.LoadState) error {
	vnew := state.Stamp.NodeVoltage(d.anode) - state.Stamp.NodeVoltage(d.cath)
	vnew = limitDiodeStep(vnew, d.lastDiff, d.vcrit, d.emission*d.thermalVoltage)
	d.lastDiff = vnew

	vdcoef := 1 / (d.emission * d.thermalVoltage)
	gmin := d.saturationCurrent * diodeGminFactor
	if gmin < diodeGminFloor {
		gmin = diodeGminFloor
	}

	eval := math.Exp(vnew * vdcoef)
	geq := vdcoef*d.saturationCurrent*eval + gmin
	ieq := (eval-1)*d.saturationCurrent - geq*vnew

	d.ee.Add(geq)
	d.ff.Add(geq)
	d.ef.Add(-geq)
	d.fe.Add(-geq)
	state.Stamp.StampCurrentSource(d.anode, d.cath, ieq)
	return nil
}

func (d *Diode) Unsetup() {}

// limitDiodeStep damps the Newton update on the exponential branch,
// following element/base/Diode.go's limitDiodeStep: past vcrit, a
// voltage jump is rescaled to the step implied by the same
// linearization, which is what keeps diode turn-on from oscillating.
func limitDiodeStep(vnew, vold, vcrit, vscale float64) float64 {
	if vnew <= vcrit || math.Abs(vnew-vold) <= 2*vscale {
		return vnew
	}
	if vold > 0 {
		arg := 1 + (vnew-vold)/vscale
		if arg > 0 {
			return vold + vscale*math.Log(arg)
		}
		return vcrit
	}
	if vnew > 0 && vscale > 0 {
		ratio := vnew / vscale
		if ratio > 1e-10 {
			return vscale * math.Log(ratio)
		}
	}
	return vscale * math.Log(1e-10)
}
