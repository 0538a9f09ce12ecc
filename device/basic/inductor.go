package basic

import (
	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/internal/sparse"
	"github.com/fly204/spicesim/mna"
)

// Inductor is a linear two-terminal inductance, formulated as a
// voltage-defined branch (an auxiliary current unknown), the standard
// MNA treatment — unlike element/base/Inductor.go's admittance-only
// shortcut, which avoids the branch row by hand-deriving G_eq=δ/L
// per method. Here the tracked TruncatableState is the branch current
// itself, and the branch constraint V1-V2-L·g_eq·I = L·i_eq falls out
// directly from TruncatableState.Integrate's generic (g_eq,i_eq) pair,
// which is the generalization spec.md §3 calls for.
type Inductor struct {
	name      string
	n1, n2    mna.NodeID
	henries   float64
	initAmps  float64

	branch  mna.VoltageID
	current device.Derivative

	branchN1, branchN2, branchSelf *sparse.Element
	n1Branch, n2Branch             *sparse.Element
}

// NewInductor builds an inductor of the given inductance in henries
// between n1 and n2, with the stated initial current (flowing from n1
// to n2) at t=0. branch is the auxiliary current unknown's identifier,
// assigned by the circuit builder alongside the node IDs.
func NewInductor(name string, n1, n2 mna.NodeID, branch mna.VoltageID, henries, initAmps float64) *Inductor {
	return &Inductor{name: name, n1: n1, n2: n2, branch: branch, henries: henries, initAmps: initAmps}
}

func (l *Inductor) Name() string { return l.name }

func (l *Inductor) Setup(ctx *device.Context) error {
	l.branchN1 = ctx.Bind.BranchElement(l.branch, l.n1)
	l.branchN2 = ctx.Bind.BranchElement(l.branch, l.n2)
	l.branchSelf = ctx.Bind.BranchSelfElement(l.branch)
	l.n1Branch = ctx.Bind.NodeBranchElement(l.n1, l.branch)
	l.n2Branch = ctx.Bind.NodeBranchElement(l.n2, l.branch)
	l.current = ctx.CreateState(true)
	l.current.SetValue(l.initAmps)
	return nil
}

func (l *Inductor) Load(state integrate.LoadState) error {
	gEq, iEq := l.current.Integrate(state.Coefficients.A, state.Coefficients.PriorDerivWeight, state.Delta)

	l.branchN1.Add(1)
	l.branchN2.Add(-1)
	l.branchSelf.Add(-l.henries * gEq)
	l.n1Branch.Add(1)
	l.n2Branch.Add(-1)
	state.Stamp.AddBranchRHS(l.branch, l.henries*iEq)

	l.current.SetValue(state.Stamp.BranchCurrent(l.branch))
	return nil
}

func (l *Inductor) Unsetup() {}
