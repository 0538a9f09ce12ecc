package sparse

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Factorization is the result of LU-factoring a Matrix. It is cheap to
// discard and re-Factor after every Stamp, which is what the Newton
// loop does each iteration.
type Factorization struct {
	lu  mat.LU
	n   int
	ok  bool
	row int // best-effort singular row, valid when ok is false
}

// Factor decomposes m. ok reports whether the matrix was usably
// conditioned; when false, row carries a best-effort index of the
// offending pivot, found by scanning the U diagonal since gonum's
// Cond() reports only a condition number, not a failing row.
func (m *Matrix) Factor() (f *Factorization, ok bool, row int) {
	f = &Factorization{n: m.n}
	f.lu.Factorize(m.dense)
	f.ok = !math.IsInf(f.lu.Cond(), 1)
	if !f.ok {
		f.row = singularRow(&f.lu, m.n)
	}
	return f, f.ok, f.row
}

func singularRow(lu *mat.LU, n int) int {
	var u mat.Dense
	lu.UTo(&u)
	const tol = 1e-300
	for i := 0; i < n; i++ {
		if math.Abs(u.At(i, i)) < tol {
			return i
		}
	}
	return n - 1
}

// Solve solves A·x = rhs using the stored decomposition, writing the
// result into out.
func (f *Factorization) Solve(rhs, out *Vector) error {
	return f.lu.SolveVecTo(out.vec, false, rhs.vec)
}
