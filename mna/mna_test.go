package mna

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroundRowIsMinusOneAndReadsZero(t *testing.T) {
	eq := NewEquations(2, 0)
	require.Equal(t, -1, eq.row(Gnd))
	require.Equal(t, 0.0, eq.NodeVoltage(Gnd))
}

func TestBranchRowIsOffsetByNodeCount(t *testing.T) {
	eq := NewEquations(3, 2)
	require.Equal(t, 3, eq.branchRow(0))
	require.Equal(t, 4, eq.branchRow(1))
	require.Equal(t, 5, eq.Dim())
}

func TestStampConductanceIsSymmetric(t *testing.T) {
	eq := NewEquations(2, 0)
	stamp := NewStamp(eq)
	stamp.StampConductance(0, 1, 2.0)

	require.Equal(t, 2.0, eq.A.At(0, 0))
	require.Equal(t, 2.0, eq.A.At(1, 1))
	require.Equal(t, -2.0, eq.A.At(0, 1))
	require.Equal(t, -2.0, eq.A.At(1, 0))
}

func TestStampConductanceToGroundIsOneSided(t *testing.T) {
	eq := NewEquations(1, 0)
	stamp := NewStamp(eq)
	stamp.StampConductance(0, Gnd, 3.0)

	require.Equal(t, 3.0, eq.A.At(0, 0))
}

func TestBindingElementHandlesStayValidAcrossClear(t *testing.T) {
	eq := NewEquations(2, 0)
	bind := NewBinding(eq)
	e := bind.Element(0, 1)
	e.Add(5)
	require.Equal(t, 5.0, eq.A.At(0, 1))

	eq.Clear()
	require.Equal(t, 0.0, eq.A.At(0, 1))

	// Same handle, same cell, still live after Clear — devices keep
	// these across the whole simulation, not just one Stamp pass.
	e.Add(7)
	require.Equal(t, 7.0, eq.A.At(0, 1))
}

func TestGroundedElementHandleIsANoOp(t *testing.T) {
	eq := NewEquations(1, 0)
	bind := NewBinding(eq)
	e := bind.Element(0, Gnd)
	e.Add(99)
	require.Equal(t, 0.0, e.Get())
	require.Equal(t, 0.0, eq.A.At(0, 0))
}

func TestBranchElementsAddressTheAuxiliaryRow(t *testing.T) {
	eq := NewEquations(2, 1)
	bind := NewBinding(eq)
	branchN1 := bind.BranchElement(0, 0)
	n1Branch := bind.NodeBranchElement(0, 0)
	self := bind.BranchSelfElement(0)

	branchN1.Add(1)
	n1Branch.Add(1)
	self.Set(-1)

	require.Equal(t, 1.0, eq.A.At(2, 0))
	require.Equal(t, 1.0, eq.A.At(0, 2))
	require.Equal(t, -1.0, eq.A.At(2, 2))
}

func TestStampCurrentSourceSignConvention(t *testing.T) {
	eq := NewEquations(2, 0)
	stamp := NewStamp(eq)
	stamp.StampCurrentSource(0, 1, 2.0)

	require.Equal(t, -2.0, eq.Z.At(0))
	require.Equal(t, 2.0, eq.Z.At(1))
}

func TestSetBranchRHSOverwritesNotAccumulates(t *testing.T) {
	eq := NewEquations(1, 1)
	stamp := NewStamp(eq)
	stamp.SetBranchRHS(0, 4)
	stamp.SetBranchRHS(0, 9)
	require.Equal(t, 9.0, eq.Z.At(1))
}

func TestSolutionRoundTrips(t *testing.T) {
	eq := NewEquations(2, 1)
	eq.SetSolution([]float64{1, 2, 3})
	require.Equal(t, []float64{1, 2, 3}, eq.Solution(nil))
	require.Equal(t, 1.0, eq.NodeVoltage(0))
	require.Equal(t, 3.0, eq.BranchCurrent(0))
}

func TestResidualZeroWhenAxEqualsZ(t *testing.T) {
	eq := NewEquations(2, 0)
	stamp := NewStamp(eq)
	stamp.StampConductance(0, 1, 1.0)
	stamp.StampCurrentSource(0, 1, 0.5)

	// A·x = z is satisfied exactly by x = [0, 0.5]: the source pushes
	// 0.5A from node 0 to node 1, so node 1 sits 0.5V above node 0
	// across the 1Ω conductance between them.
	eq.SetSolution([]float64{0, 0.5})
	require.InDelta(t, 0.0, eq.Residual(), 1e-12)
}

func TestResidualNonzeroWhenUnsolved(t *testing.T) {
	eq := NewEquations(2, 0)
	stamp := NewStamp(eq)
	stamp.StampConductance(0, 1, 1.0)
	stamp.StampCurrentSource(0, 1, 0.5)

	eq.SetSolution([]float64{0, 0})
	require.Greater(t, eq.Residual(), 0.0)
}
