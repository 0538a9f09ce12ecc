package integrate

// Coefficients is the order-k vector a[0..k] spec.md §3 describes,
// such that ẏ(t0) ≈ (1/δ)·Σ a[i]·y(t_i), plus the trapezoidal method's
// extra weight on the previously integrated derivative. Recomputed
// whenever order or the trailing delta sequence changes.
type Coefficients struct {
	A                []float64
	PriorDerivWeight float64
}

// bdfCoefficients computes variable-step Gear/BDF coefficients of the
// given order from the trailing step-size sequence: deltas[0] is the
// candidate/current step, deltas[1] the step before state[1],
// deltas[2] the step before that, and so on. The coefficients depend
// only on the ratios of these deltas, per spec.md §3.
func bdfCoefficients(order int, deltas []float64) []float64 {
	x := make([]float64, order+1)
	x[0] = 0
	for i := 1; i <= order; i++ {
		x[i] = x[i-1] - deltas[i-1]/deltas[0]
	}
	return lagrangeDerivativeWeights(x)
}

// lagrangeDerivativeWeights returns the weights a[0..k] such that the
// derivative at x[0] of the degree-k polynomial interpolating
// (x[i], y[i]) is Σ a[i]·y[i]. x[0] is itself one of the nodes.
func lagrangeDerivativeWeights(x []float64) []float64 {
	k := len(x) - 1
	a := make([]float64, k+1)
	if k == 0 {
		return a
	}
	sum := 0.0
	for j := 1; j <= k; j++ {
		sum += 1 / (x[0] - x[j])
	}
	a[0] = sum
	for i := 1; i <= k; i++ {
		prod := 1.0
		for j := 1; j <= k; j++ {
			if j == i {
				continue
			}
			prod *= (x[0] - x[j]) / (x[i] - x[j])
		}
		a[i] = prod / (x[i] - x[0])
	}
	return a
}

// trapezoidalCoefficients returns the 2-point backward-Euler-shaped
// coefficients trapezoidal integration reuses, paired with the -1
// weight on the prior derivative that turns them into the trapezoidal
// rule y0 - y1 = (δ/2)(ẏ0+ẏ1). The coefficients don't depend on delta
// itself, only on its ratio to the prior step, which is already folded
// into the constant {2,-2} shape for a fixed-order-2 method.
func trapezoidalCoefficients() Coefficients {
	return Coefficients{A: []float64{2, -2}, PriorDerivWeight: -1}
}

// backwardEulerCoefficients is order 1 for both methods: the first
// step of any run, and the step immediately following a breakpoint or
// non-convergence recovery, per spec.md §4.1.
func backwardEulerCoefficients() Coefficients {
	return Coefficients{A: []float64{1, -1}, PriorDerivWeight: 0}
}
