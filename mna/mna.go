// Package mna implements Modified Nodal Analysis bookkeeping: node and
// branch identifiers, the assembled coefficient matrix/RHS pair, and
// the Stamp view devices use to contribute to both. It is the
// behavior/binding contract spec.md §4.5/§6 describes — devices never
// see the sparse package directly.
package mna

import (
	"math"

	"github.com/fly204/spicesim/internal/sparse"
)

// NodeID identifies a circuit node. Gnd is eliminated from the matrix.
type NodeID int

// Gnd is the reference node; every stamp touching Gnd is a no-op on
// the matrix, which is how reference-node elimination is implemented.
const Gnd NodeID = -1

// VoltageID identifies the auxiliary current unknown introduced by a
// voltage-defined branch (independent or controlled source, inductor
// formulated with a branch current).
type VoltageID int

// Equations owns the assembled system A·x = z for one circuit. Row/
// column 0..nodes-1 are node-voltage unknowns (ground already
// excluded from that range by the caller), and nodes..nodes+branches-1
// are branch-current unknowns.
type Equations struct {
	nodes    int
	branches int
	A        *sparse.Matrix
	Z        *sparse.Vector
	X        *sparse.Vector
}

// NewEquations allocates a zeroed system sized for nodes node voltages
// and branches auxiliary branch currents.
func NewEquations(nodes, branches int) *Equations {
	n := nodes + branches
	return &Equations{
		nodes:    nodes,
		branches: branches,
		A:        sparse.NewMatrix(n),
		Z:        sparse.NewVector(n),
		X:        sparse.NewVector(n),
	}
}

// Dim is the total unknown count (nodes + branches).
func (e *Equations) Dim() int { return e.nodes + e.branches }

// row maps a NodeID to a matrix row/column, or -1 for Gnd.
func (e *Equations) row(n NodeID) int {
	if n == Gnd {
		return -1
	}
	return int(n)
}

// branchRow maps a VoltageID to its matrix row/column.
func (e *Equations) branchRow(id VoltageID) int {
	return e.nodes + int(id)
}

// Clear zeros A and Z before a fresh Stamp pass.
func (e *Equations) Clear() {
	e.A.Clear()
	e.Z.Zero()
}

// NodeVoltage reads the solved voltage at a node (0 for Gnd).
func (e *Equations) NodeVoltage(n NodeID) float64 {
	r := e.row(n)
	if r < 0 {
		return 0
	}
	return e.X.At(r)
}

// BranchCurrent reads the solved current through a voltage-defined
// branch.
func (e *Equations) BranchCurrent(id VoltageID) float64 {
	return e.X.At(e.branchRow(id))
}

// Solution copies the full unknown vector (node voltages followed by
// branch currents) into dst, resizing it if needed.
func (e *Equations) Solution(dst []float64) []float64 {
	n := e.Dim()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i := 0; i < n; i++ {
		dst[i] = e.X.At(i)
	}
	return dst
}

// SetSolution overwrites the unknown vector, used to seed a predicted
// value before the first Newton iteration of a step.
func (e *Equations) SetSolution(x []float64) {
	for i, v := range x {
		e.X.Set(i, v)
	}
}

// Residual reports ‖A·x - z‖∞, the KCL residual spec.md §8's
// accepted-solution invariant bounds by RelTol·‖x‖∞ + AbsTol.
func (e *Equations) Residual() float64 {
	n := e.Dim()
	ax := sparse.NewVector(n)
	e.A.MulVec(e.X, ax)
	max := 0.0
	for i := 0; i < n; i++ {
		r := math.Abs(ax.At(i) - e.Z.At(i))
		if r > max {
			max = r
		}
	}
	return max
}
