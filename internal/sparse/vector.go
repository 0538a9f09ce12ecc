package sparse

import "gonum.org/v1/gonum/mat"

// Vector is a dense right-hand-side or solution vector.
type Vector struct {
	n   int
	vec *mat.VecDense
}

// NewVector allocates a length-n zero vector.
func NewVector(n int) *Vector {
	return &Vector{n: n, vec: mat.NewVecDense(n, nil)}
}

// Len returns the vector length.
func (v *Vector) Len() int { return v.n }

// At returns element i. Ground (negative index) reads as 0.
func (v *Vector) At(i int) float64 {
	if i < 0 {
		return 0
	}
	return v.vec.AtVec(i)
}

// Set overwrites element i. A no-op for a grounded index.
func (v *Vector) Set(i int, x float64) {
	if i < 0 {
		return
	}
	v.vec.SetVec(i, x)
}

// Add accumulates x into element i. A no-op for a grounded index.
func (v *Vector) Add(i int, x float64) {
	if i < 0 {
		return
	}
	v.vec.SetVec(i, v.vec.AtVec(i)+x)
}

// Zero clears every element without reallocating.
func (v *Vector) Zero() {
	for i := 0; i < v.n; i++ {
		v.vec.SetVec(i, 0)
	}
}

// CopyTo copies this vector's contents into dst, which must have the
// same length.
func (v *Vector) CopyTo(dst *Vector) {
	dst.vec.CopyVec(v.vec)
}

// Raw exposes the underlying gonum vector for interop with mat.LU.
func (v *Vector) Raw() *mat.VecDense { return v.vec }
