// Package sparse implements the matrix/vector/LU contract spec.md §4.4
// names as an external collaborator of the integration engine. It is
// backed by gonum.org/v1/gonum's dense linear algebra rather than a
// hand-rolled solver: circuits assembled by this module are small
// enough that a dense factorization is the right tool, and gonum is
// the library every numerical repo in this corpus reaches for.
package sparse

import "gonum.org/v1/gonum/mat"

// Matrix is a square MNA coefficient matrix. Element handles returned
// by GetElement remain valid for the matrix's lifetime: dimensions are
// fixed at construction and never resized.
type Matrix struct {
	n     int
	dense *mat.Dense
}

// NewMatrix allocates an n×n zero matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, dense: mat.NewDense(n, n, nil)}
}

// Dim returns the matrix dimension.
func (m *Matrix) Dim() int { return m.n }

// Clear zeros every entry without reallocating.
func (m *Matrix) Clear() {
	m.dense.Zero()
}

// At returns the value at (row, col), mainly for tests and diagnostics.
func (m *Matrix) At(row, col int) float64 { return m.dense.At(row, col) }

// MulVec computes dst = m·x, mainly used to check the KCL residual
// ‖A·x - z‖∞ spec.md §8 names as a testable invariant.
func (m *Matrix) MulVec(x *Vector, dst *Vector) {
	dst.vec.MulVec(m.dense, x.vec)
}

// Element is a stable handle into one matrix cell. Devices obtain one
// handle per stamped cell during Setup and reuse it across every Stamp
// call for the lifetime of the simulation.
type Element struct {
	m        *Matrix
	row, col int
}

// GetElement returns a stable handle to cell (row, col). Rows or
// columns referring to ground (negative) return a no-op handle so
// devices can stamp grounded pins unconditionally.
func (m *Matrix) GetElement(row, col int) *Element {
	if row < 0 || col < 0 {
		return &Element{m: nil, row: -1, col: -1}
	}
	return &Element{m: m, row: row, col: col}
}

// Add accumulates v into the cell. A no-op for a grounded handle.
func (e *Element) Add(v float64) {
	if e.m == nil {
		return
	}
	e.m.dense.Set(e.row, e.col, e.m.dense.At(e.row, e.col)+v)
}

// Set overwrites the cell. A no-op for a grounded handle.
func (e *Element) Set(v float64) {
	if e.m == nil {
		return
	}
	e.m.dense.Set(e.row, e.col, v)
}

// Get reads the current cell value. A grounded handle always reads 0.
func (e *Element) Get() float64 {
	if e.m == nil {
		return 0
	}
	return e.m.dense.At(e.row, e.col)
}
