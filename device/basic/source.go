package basic

import (
	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/internal/sparse"
	"github.com/fly204/spicesim/mna"
)

// VSource is an independent voltage source, formulated as the
// standard MNA voltage-defined branch, the same shape
// element/base/Voltage.go's StampVoltageSource uses, generalized over
// Waveform instead of a fixed set of waveform-type constants.
type VSource struct {
	name     string
	n1, n2   mna.NodeID
	waveform Waveform

	branch mna.VoltageID

	branchN1, branchN2 *sparse.Element
	n1Branch, n2Branch *sparse.Element
}

// NewVSource builds a voltage source between n1 (+) and n2 (-) driven
// by waveform. branch is the auxiliary current unknown's identifier,
// assigned by the circuit builder alongside the node IDs.
func NewVSource(name string, n1, n2 mna.NodeID, branch mna.VoltageID, waveform Waveform) *VSource {
	return &VSource{name: name, n1: n1, n2: n2, branch: branch, waveform: waveform}
}

func (v *VSource) Name() string { return v.name }

func (v *VSource) Setup(ctx *device.Context) error {
	v.branchN1 = ctx.Bind.BranchElement(v.branch, v.n1)
	v.branchN2 = ctx.Bind.BranchElement(v.branch, v.n2)
	v.n1Branch = ctx.Bind.NodeBranchElement(v.n1, v.branch)
	v.n2Branch = ctx.Bind.NodeBranchElement(v.n2, v.branch)
	for _, t := range v.waveform.Breakpoints() {
		ctx.Breakpoint(t)
	}
	return nil
}

func (v *VSource) Load(state integrate.LoadState) error {
	v.branchN1.Add(1)
	v.branchN2.Add(-1)
	v.n1Branch.Add(1)
	v.n2Branch.Add(-1)
	state.Stamp.SetBranchRHS(v.branch, v.waveform.Value(state.Time))
	return nil
}

func (v *VSource) Unsetup() {}

// ISource is an independent current source, flowing from n1 through
// the device to n2.
type ISource struct {
	name     string
	n1, n2   mna.NodeID
	waveform Waveform
}

// NewISource builds a current source between n1 and n2 driven by
// waveform.
func NewISource(name string, n1, n2 mna.NodeID, waveform Waveform) *ISource {
	return &ISource{name: name, n1: n1, n2: n2, waveform: waveform}
}

func (i *ISource) Name() string { return i.name }

func (i *ISource) Setup(ctx *device.Context) error {
	for _, t := range i.waveform.Breakpoints() {
		ctx.Breakpoint(t)
	}
	return nil
}

func (i *ISource) Load(state integrate.LoadState) error {
	state.Stamp.StampCurrentSource(i.n1, i.n2, i.waveform.Value(state.Time))
	return nil
}

func (i *ISource) Unsetup() {}
